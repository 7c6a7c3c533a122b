package bridge

import "errors"

// ErrValidation wraps rejected request input. Validation runs before
// any store is touched, so a validation failure implies no state
// change and no event emission.
var ErrValidation = errors.New("invalid input")
