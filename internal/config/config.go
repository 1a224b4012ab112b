// Package config loads fingerled settings from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/fingerled/internal/capture"
	"github.com/ayusman/fingerled/internal/detector"
	"github.com/ayusman/fingerled/internal/display"
	"github.com/ayusman/fingerled/internal/link"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FINGERLED_"

// Config is the full runtime configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Display  DisplayConfig  `yaml:"display"`
	Log      LogConfig      `yaml:"log"`
	Journal  JournalConfig  `yaml:"journal"`
	Status   StatusConfig   `yaml:"status"`
}

type SerialConfig struct {
	Port       string        `yaml:"port" validate:"required"`
	Baud       int           `yaml:"baud" validate:"oneof=300 1200 2400 4800 9600 19200 38400 57600 115200"`
	ResetDelay time.Duration `yaml:"resetDelay" validate:"min=0"`
	Settle     time.Duration `yaml:"settle" validate:"min=0"`
}

type CameraConfig struct {
	Device int  `yaml:"device" validate:"min=0"`
	FPS    int  `yaml:"fps" validate:"min=1,max=120"`
	Mirror bool `yaml:"mirror"`
}

type DetectorConfig struct {
	MaxHands        int           `yaml:"maxHands" validate:"min=1,max=4"`
	MinConfidence   float64       `yaml:"minConfidence" validate:"gte=0,lte=1"`
	MinTrackingConf float64       `yaml:"minTrackingConfidence" validate:"gte=0,lte=1"`
	Script          string        `yaml:"script"`
	Python          string        `yaml:"python"`
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
}

type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	File  string `yaml:"file"`
}

// JournalConfig enables the SQLite transmission journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// StatusConfig enables the HTTP status side-car when Addr is set.
type StatusConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	port := link.DefaultPortConfig()
	det := detector.DefaultConfig()

	return Config{
		Serial: SerialConfig{
			Port:       port.Name,
			Baud:       port.Baud,
			ResetDelay: port.ResetDelay,
			Settle:     link.DefaultSettle,
		},
		Camera: CameraConfig{
			Device: capture.DefaultDevice,
			FPS:    capture.DefaultFPS,
			Mirror: true,
		},
		Detector: DetectorConfig{
			MaxHands:        det.MaxHands,
			MinConfidence:   det.MinConfidence,
			MinTrackingConf: det.MinTrackingConf,
			Timeout:         det.Timeout,
		},
		Display: DisplayConfig{
			Enabled: true,
			Title:   display.DefaultTitle,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. A missing file at path is an error only
// when path was given explicitly; otherwise the default locations are tried.
// Values from a .env file and FINGERLED_* variables win over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidates := []string{path}
	if path == "" {
		candidates = []string{"fingerled.yaml", "configs/fingerled.yaml"}
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			if path != "" {
				return cfg, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", p, err)
		}
		break
	}

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnvOverrides copies FINGERLED_* variables onto cfg.
func ApplyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("SERIAL_PORT", &cfg.Serial.Port)
	num("SERIAL_BAUD", &cfg.Serial.Baud)
	duration("SERIAL_RESET_DELAY", &cfg.Serial.ResetDelay)
	duration("SERIAL_SETTLE", &cfg.Serial.Settle)
	num("CAMERA_DEVICE", &cfg.Camera.Device)
	num("CAMERA_FPS", &cfg.Camera.FPS)
	boolean("CAMERA_MIRROR", &cfg.Camera.Mirror)
	num("DETECTOR_MAX_HANDS", &cfg.Detector.MaxHands)
	float("DETECTOR_MIN_CONFIDENCE", &cfg.Detector.MinConfidence)
	float("DETECTOR_MIN_TRACKING_CONFIDENCE", &cfg.Detector.MinTrackingConf)
	str("DETECTOR_SCRIPT", &cfg.Detector.Script)
	str("DETECTOR_PYTHON", &cfg.Detector.Python)
	duration("DETECTOR_TIMEOUT", &cfg.Detector.Timeout)
	boolean("DISPLAY_ENABLED", &cfg.Display.Enabled)
	str("DISPLAY_TITLE", &cfg.Display.Title)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	str("JOURNAL_PATH", &cfg.Journal.Path)
	str("STATUS_ADDR", &cfg.Status.Addr)

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SerialPort converts the serial section for link.Open.
func (c Config) SerialPort() link.PortConfig {
	return link.PortConfig{
		Name:        c.Serial.Port,
		Baud:        c.Serial.Baud,
		ReadTimeout: link.DefaultReadTimeout,
		ResetDelay:  c.Serial.ResetDelay,
	}
}

// HandDetector converts the detector section for detector.NewMediaPipeDetector.
func (c Config) HandDetector() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConf,
		Script:          c.Detector.Script,
		Python:          c.Detector.Python,
		Timeout:         c.Detector.Timeout,
	}
}
