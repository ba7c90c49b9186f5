package chatbot

import "errors"

// ErrEmptyMessage is returned by Handle when the message is blank.
var ErrEmptyMessage = errors.New("chatbot: message is required")
