package validate

import "fmt"

// EchoValidator plugs Check into echo's c.Validate. Anything that is not a
// Form is rejected so a handler cannot silently skip validation.
type EchoValidator struct{}

func (EchoValidator) Validate(i interface{}) error {
	f, ok := i.(Form)
	if !ok {
		return fmt.Errorf("validate: %T does not implement Form", i)
	}
	return Check(f).Err()
}
