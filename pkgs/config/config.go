package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Station struct {
	// Slots is the number of refresh slots, one locomotive each
	Slots int
}

type Serial struct {
	// Port is a serial device, "-" reads the commands from stdin
	Port string
	Baud int
}

type Signal struct {
	OneHalfCycle  time.Duration `mapstructure:"one_half_cycle"`
	ZeroHalfCycle time.Duration `mapstructure:"zero_half_cycle"`
	Tick          time.Duration
}

type Power struct {
	// SensePath is a file with the raw current sense reading, e.g. an IIO sysfs attribute. Empty disables the overload monitor.
	SensePath      string        `mapstructure:"sense_path"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	Smoothing      float64
	Limit          float64
}

type Configuration struct {
	Station Station
	Serial  Serial
	Signal  Signal
	Power   Power
}

func NewConfig() (*Configuration, error) {
	config := Configuration{}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(".dcc")
	v.AddConfigPath("$HOME/")
	v.AddConfigPath(".")
	_ = v.SafeWriteConfig()

	// DCC_SERIAL_PORT=/dev/ttyUSB0 overrides serial.port
	v.SetEnvPrefix("DCC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("station.slots", 2)
	v.SetDefault("serial.port", "-")
	v.SetDefault("serial.baud", 57600)
	v.SetDefault("signal.one_half_cycle", "58us")
	v.SetDefault("signal.zero_half_cycle", "100us")
	v.SetDefault("signal.tick", "10ms")
	v.SetDefault("power.sense_path", "")
	v.SetDefault("power.sample_interval", "10ms")
	v.SetDefault("power.smoothing", 0.01)
	v.SetDefault("power.limit", 300)

	if err := v.ReadInConfig(); err != nil {
		return &Configuration{}, fmt.Errorf("cannot parse config: %s", err.Error())
	}
	if err := v.Unmarshal(&config); err != nil {
		return &config, fmt.Errorf("cannot parse config: %s", err.Error())
	}
	if config.Station.Slots < 1 {
		return &config, fmt.Errorf("cannot parse config: station.slots must be at least 1, got %d", config.Station.Slots)
	}

	return &config, nil
}
