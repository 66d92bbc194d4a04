package app

import (
	"errors"
	"fmt"
)

// CommandType names a host request.
type CommandType string

const (
	CmdEmotion       CommandType = "emotion"
	CmdGesture       CommandType = "gesture"
	CmdStart         CommandType = "start"
	CmdStop          CommandType = "stop"
	CmdSpeak         CommandType = "speak"
	CmdTalkStart     CommandType = "talk_start"
	CmdTalkStop      CommandType = "talk_stop"
	CmdMouth         CommandType = "mouth"
	CmdSpeechEnabled CommandType = "speech_enabled"
	CmdTutorResponse CommandType = "tutor_response"
)

// ErrUnknownCommand is returned by Validate for an unrecognised type.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one request from the host. Fields unused by a type are
// ignored.
type Command struct {
	Type        CommandType `json:"type"`
	Name        string      `json:"name,omitempty"`
	Text        string      `json:"text,omitempty"`
	WPM         int         `json:"wpm,omitempty"`
	Amount      float64     `json:"amount,omitempty"`
	Enabled     bool        `json:"enabled,omitempty"`
	Emotion     string      `json:"emotion,omitempty"`
	Gesture     string      `json:"gesture,omitempty"`
	Performance string      `json:"performance,omitempty"`
}

// Validate checks the type and required fields. Emotion and gesture names
// are not checked here; the controller logs and ignores unknown ones.
func (c Command) Validate() error {
	switch c.Type {
	case CmdEmotion, CmdGesture:
		if c.Name == "" {
			return fmt.Errorf("%s: name required", c.Type)
		}
	case CmdStart, CmdSpeak, CmdTutorResponse:
		if c.Text == "" {
			return fmt.Errorf("%s: text required", c.Type)
		}
	case CmdStop, CmdTalkStart, CmdTalkStop, CmdMouth, CmdSpeechEnabled:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return nil
}
