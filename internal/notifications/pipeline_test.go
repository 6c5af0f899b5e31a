package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		days      int
		wantTitle string
		wantBody  string
	}{
		{
			name:      "today, female",
			event:     Event{FriendName: "Maria", EventName: "Birthday", Gender: GenderFemale},
			days:      0,
			wantTitle: "Maria's Birthday is today!",
			wantBody:  "Check out gift ideas for her!",
		},
		{
			name:      "thirty days, male",
			event:     Event{FriendName: "Tom", EventName: "Anniversary", Gender: GenderMale},
			days:      30,
			wantTitle: "Tom's Anniversary",
			wantBody:  "30 days remaining! Check out gift ideas for him",
		},
		{
			name:      "seven days, unknown gender",
			event:     Event{FriendName: "Sam", EventName: "Graduation"},
			days:      7,
			wantTitle: "Sam's Graduation",
			wantBody:  "7 days remaining! Check out gift ideas for them",
		},
		{
			name:      "single day",
			event:     Event{FriendName: "Sam", EventName: "Party"},
			days:      1,
			wantTitle: "Sam's Party",
			wantBody:  "1 day remaining! Check out gift ideas for them",
		},
		{
			name:      "missing friend name",
			event:     Event{EventName: "Birthday"},
			days:      0,
			wantTitle: "Your friend's Birthday is today!",
			wantBody:  "Check out gift ideas for them!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Compose(tt.event, tt.days)
			assert.Equal(t, tt.wantTitle, msg.Title)
			assert.Equal(t, tt.wantBody, msg.Body)
		})
	}
}

func TestParseGender(t *testing.T) {
	assert.Equal(t, GenderMale, ParseGender("male"))
	assert.Equal(t, GenderMale, ParseGender(" Male "))
	assert.Equal(t, GenderFemale, ParseGender("FEMALE"))
	assert.Equal(t, GenderFemale, ParseGender("f"))
	assert.Equal(t, GenderUnknown, ParseGender(""))
	assert.Equal(t, GenderUnknown, ParseGender("other"))
}

func TestGender_Pronoun(t *testing.T) {
	assert.Equal(t, "him", GenderMale.Pronoun())
	assert.Equal(t, "her", GenderFemale.Pronoun())
	assert.Equal(t, "them", GenderUnknown.Pronoun())
	assert.Equal(t, "them", Gender("robot").Pronoun())
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, Event{ID: "e1", UID: "u1", Date: 1}.Validate())
	assert.ErrorContains(t, Event{ID: "e1", Date: 1}.Validate(), "missing uid")
	assert.ErrorContains(t, Event{ID: "e1", UID: "u1"}.Validate(), "missing date")
}

func TestPayload(t *testing.T) {
	data := payload(Event{ID: "evt-9"}, 14)
	assert.Equal(t, map[string]string{"event_id": "evt-9", "days_remaining": "14"}, data)
}
