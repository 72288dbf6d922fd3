package listener

import "errors"

var errInvalidPayload = errors.New("notification payload missing item_id or user_id")
