package notifications

import (
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Message composition
// --------------------------------------------------------------------------

// Compose builds the notification text for an event that is offsetDays away.
func Compose(e Event, offsetDays int) Message {
	subject := possessive(e.FriendName) + " " + e.EventName
	pronoun := e.Gender.Pronoun()

	if offsetDays == 0 {
		return Message{
			Title: subject + " is today!",
			Body:  fmt.Sprintf("Check out gift ideas for %s!", pronoun),
		}
	}
	return Message{
		Title: subject,
		Body:  fmt.Sprintf("%s remaining! Check out gift ideas for %s", dayCount(offsetDays), pronoun),
	}
}

// payload is the data map attached to every push.
func payload(e Event, offsetDays int) map[string]string {
	return map[string]string{
		"event_id":       e.ID,
		"days_remaining": strconv.Itoa(offsetDays),
	}
}

func possessive(name string) string {
	if name == "" {
		return "Your friend's"
	}
	return name + "'s"
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
