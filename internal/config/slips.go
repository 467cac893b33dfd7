package config

import "github.com/kelseyhightower/envconfig"

// SlipConfig configures where uploaded payment slips are written.
type SlipConfig struct {
	Dir      string `envconfig:"SLIP_DIR" default:"uploads/payment_slips"`
	MaxBytes int64  `envconfig:"SLIP_MAX_BYTES" default:"5242880"`
}

// LoadSlipConfig reads the SLIP_* variables.
func LoadSlipConfig() (SlipConfig, error) {
	var c SlipConfig
	err := envconfig.Process("", &c)
	return c, err
}
