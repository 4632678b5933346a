package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object.
	ErrMalformed = errors.New("malformed frame")
	// ErrInvalid is returned for well-formed frames that fail validation.
	ErrInvalid = errors.New("invalid frame")
	// ErrUnknownType is returned for frames whose type is not part of the
	// protocol.
	ErrUnknownType = errors.New("unknown frame type")
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return roomIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsProtocolError reports whether err means the peer sent a bad frame.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrInvalid)
}

// FrameType extracts the discriminator without decoding the rest of the frame.
func FrameType(raw []byte) (Type, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrInvalid)
	}
	return env.Type, nil
}

// DecodeCommand parses and validates a client to server frame.
func DecodeCommand(raw []byte) (Command, error) {
	typ, err := FrameType(raw)
	if err != nil {
		return nil, err
	}

	var cmd Command
	switch typ {
	case TypeCreateRoom:
		var c CreateRoom
		if err := unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case TypeJoinRoom:
		var c JoinRoom
		if err := unmarshal(raw, &c); err != nil {
			return nil, err
		}
		c.RoomID = strings.TrimSpace(c.RoomID)
		cmd = c
	case TypeLeaveRoom:
		var c LeaveRoom
		if err := unmarshal(raw, &c); err != nil {
			return nil, err
		}
		cmd = c
	case TypeSendMessage:
		var c SendMessage
		if err := unmarshal(raw, &c); err != nil {
			return nil, err
		}
		c.MessageData.Text = strings.TrimSpace(c.MessageData.Text)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, typ, err)
	}
	return cmd, nil
}

// DecodeEvent parses a server to client frame.
func DecodeEvent(raw []byte) (Event, error) {
	typ, err := FrameType(raw)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeRoomCreated:
		return decodeAs[RoomCreated](raw)
	case TypeRoomJoined:
		return decodeAs[RoomJoined](raw)
	case TypeUserJoined:
		return decodeAs[UserJoined](raw)
	case TypeUserLeft:
		return decodeAs[UserLeft](raw)
	case TypeRoomClosed:
		return decodeAs[RoomClosed](raw)
	case TypeNewMessage:
		return decodeAs[NewMessage](raw)
	case TypeError:
		return decodeAs[Error](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func decodeAs[T Event](raw []byte) (Event, error) {
	var e T
	if err := unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// Encode marshals a frame and checks that its type field matches the Go type.
func Encode(f Frame) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.FrameType(), err)
	}
	typ, err := FrameType(raw)
	if err != nil || typ != f.FrameType() {
		return nil, fmt.Errorf("encode %s: %w: type field not set", f.FrameType(), ErrInvalid)
	}
	return raw, nil
}

func unmarshal(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
