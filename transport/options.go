package transport

import "time"

// Config holds the Serial transport's configuration.
type Config struct {
	ProgressCallback ProgressCallback
	Logger           Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Retries is the number of retry attempts for the PING in Open and
	// for a flash-verify mismatch; other commands are not retried.
	Retries int

	// NominalBaud is the rate the bootloader starts at; NegotiatedBaud
	// is attempted via CHANGE_BAUD once PING succeeds.
	NominalBaud    uint32
	NegotiatedBaud uint32

	// VerifyAfterWrite enables a CRC_IFLASH comparison after each
	// flash_binary call.
	VerifyAfterWrite bool

	// DisableConcurrencyGate skips the TCP-bind mutual-exclusion lock,
	// for tests driving a mock transport.
	DisableConcurrencyGate bool
}

func defaultConfig() Config {
	return Config{
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		Retries:          3,
		NominalBaud:      115200,
		NegotiatedBaud:   921600,
		VerifyAfterWrite: true,
	}
}

// Option is a functional option for configuring a Serial transport.
type Option func(*Config)

// WithProgressCallback sets a callback invoked during flash writes.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) { c.ProgressCallback = cb }
}

// WithLogger sets the transport's logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithTimeout sets both read and write timeouts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = timeout
		c.WriteTimeout = timeout
	}
}

// WithRetries sets the retry count for the PING in Open and for flash
// verification mismatches.
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithBaudRates sets the nominal and post-negotiation baud rates.
func WithBaudRates(nominal, negotiated uint32) Option {
	return func(c *Config) {
		c.NominalBaud = nominal
		c.NegotiatedBaud = negotiated
	}
}

// WithVerifyAfterWrite enables or disables the CRC_IFLASH verification
// step after flash_binary. Default is true.
func WithVerifyAfterWrite(verify bool) Option {
	return func(c *Config) { c.VerifyAfterWrite = verify }
}

// WithoutConcurrencyGate disables the TCP-bind mutual-exclusion lock.
// Intended for tests driving a mock transport over the same process.
func WithoutConcurrencyGate() Option {
	return func(c *Config) { c.DisableConcurrencyGate = true }
}
