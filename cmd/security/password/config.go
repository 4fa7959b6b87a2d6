package password

import "fmt"

// Params controls PBKDF2 cost and output sizes.
type Params struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Params
	Policy Policy
}

// DefaultConfig returns the baseline used for every stored hash:
// 100k iterations, 16-byte salt, 32-byte key.
func DefaultConfig() Config {
	return Config{
		Params: Params{
			Iterations: 100_000,
			SaltLength: 16,
			KeyLength:  32,
		},
		Policy: Policy{
			MinLength: 1,
			// Bounds PBKDF2 input work per request.
			MaxLength: 1024,
		},
	}
}

// Check reports whether c is usable. App wiring calls it once at startup.
func (c Config) Check() error {
	switch {
	case c.Params.Iterations < 10_000 || c.Params.Iterations > 10_000_000:
		return fmt.Errorf("%w: iterations %d out of range [10000..10000000]", ErrInvalidConfig, c.Params.Iterations)
	case c.Params.SaltLength < minSaltLen || c.Params.SaltLength > maxSaltLen:
		return fmt.Errorf("%w: salt length %d out of range [%d..%d]", ErrInvalidConfig, c.Params.SaltLength, minSaltLen, maxSaltLen)
	case c.Params.KeyLength < minKeyLen || c.Params.KeyLength > maxKeyLen:
		return fmt.Errorf("%w: key length %d out of range [%d..%d]", ErrInvalidConfig, c.Params.KeyLength, minKeyLen, maxKeyLen)
	case c.Policy.MinLength < 1:
		return fmt.Errorf("%w: min length must be >= 1", ErrInvalidConfig)
	case c.Policy.MinLength > c.Policy.MaxLength:
		return fmt.Errorf("%w: min_len(%d) > max_len(%d)", ErrInvalidConfig, c.Policy.MinLength, c.Policy.MaxLength)
	}
	return nil
}
