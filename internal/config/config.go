// Package config loads settings from strikezone.json and STRIKEZONE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ayusman/strikezone/internal/capture"
	"github.com/ayusman/strikezone/internal/detector"
	"github.com/ayusman/strikezone/internal/field"
	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/tracker"
)

// FileName is the config file looked up in the config directory.
const FileName = "strikezone.json"

// EnvPrefix prefixes environment overrides, e.g. STRIKEZONE_SERVER_ADDR.
const EnvPrefix = "STRIKEZONE"

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// HooksConfig holds pitch hook settings.
type HooksConfig struct {
	Dir       string `json:"dir" mapstructure:"dir"`
	TimeoutMs int    `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// MotionConfig controls the motion gate in front of the detector.
type MotionConfig struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	Threshold float64       `json:"threshold" mapstructure:"threshold"`
	Hold      time.Duration `json:"hold" mapstructure:"hold"`
}

// SessionConfig controls recovery after an interruption.
type SessionConfig struct {
	RestartBackoff time.Duration `json:"restartBackoff" mapstructure:"restartBackoff"`
	MaxRestarts    int           `json:"maxRestarts" mapstructure:"maxRestarts"`
}

// Config is the complete application configuration.
type Config struct {
	LogLevel     string              `mapstructure:"logLevel"`
	LogFile      string              `mapstructure:"logFile"`
	Server       ServerConfig        `mapstructure:"server"`
	Store        StoreConfig         `mapstructure:"store"`
	Hooks        HooksConfig         `mapstructure:"hooks"`
	Camera       capture.Config      `mapstructure:"camera"`
	Mount        capture.MountConfig `mapstructure:"mount"`
	Intrinsics   geom.Intrinsics     `mapstructure:"intrinsics"`
	BallDiameter float64             `mapstructure:"ballDiameter"`
	Motion       MotionConfig        `mapstructure:"motion"`
	Detector     detector.Config     `mapstructure:"detector"`
	Field        field.Config        `mapstructure:"field"`
	Tracker      tracker.Config      `mapstructure:"tracker"`
	Session      SessionConfig       `mapstructure:"session"`
}

// Load sets defaults and reads strikezone.json from configDir. A missing
// file is not an error; defaults and environment apply.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(strings.TrimSuffix(FileName, ".json"))
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Info().Str("dir", configDir).Msg("no config file, using defaults")
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	log.Info().Str("file", viper.ConfigFileUsed()).Msg("config loaded")
	return nil
}

// Get decodes the loaded settings.
func Get() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFile", "")

	viper.SetDefault("server.addr", "127.0.0.1:8080")
	viper.SetDefault("store.path", "./strikezone.db")
	viper.SetDefault("hooks.dir", "./plugins")
	viper.SetDefault("hooks.timeoutMs", 5000)

	cam := capture.DefaultConfig()
	viper.SetDefault("camera.deviceId", cam.DeviceID)
	viper.SetDefault("camera.file", cam.File)
	viper.SetDefault("camera.width", cam.Width)
	viper.SetDefault("camera.height", cam.Height)
	viper.SetDefault("camera.fps", cam.FPS)

	mount := capture.DefaultMountConfig()
	viper.SetDefault("mount.height", mount.Height)
	viper.SetDefault("mount.pitchDegrees", mount.PitchDegrees)
	viper.SetDefault("mount.yawDegrees", mount.YawDegrees)

	in := geom.DefaultIntrinsics()
	viper.SetDefault("intrinsics.fx", in.Fx)
	viper.SetDefault("intrinsics.fy", in.Fy)
	viper.SetDefault("intrinsics.cx", in.Cx)
	viper.SetDefault("intrinsics.cy", in.Cy)
	viper.SetDefault("intrinsics.width", in.Width)
	viper.SetDefault("intrinsics.height", in.Height)
	viper.SetDefault("ballDiameter", 0.074)

	viper.SetDefault("motion.enabled", true)
	viper.SetDefault("motion.threshold", capture.DefaultMotionThreshold)
	viper.SetDefault("motion.hold", 2*time.Second)

	det := detector.DefaultConfig()
	viper.SetDefault("detector.command", det.Command)
	viper.SetDefault("detector.args", det.Args)
	viper.SetDefault("detector.modelPath", det.ModelPath)
	viper.SetDefault("detector.idleTimeoutSec", det.IdleTimeoutSec)

	fc := field.DefaultConfig()
	viper.SetDefault("field.debounceDelay", fc.DebounceDelay)
	viper.SetDefault("field.yawSign", fc.YawSign)
	viper.SetDefault("field.maxYawDegrees", fc.MaxYawDegrees)
	viper.SetDefault("field.maxOffsetMeters", fc.MaxOffsetMeters)
	viper.SetDefault("field.dimensions.strikeZoneWidth", fc.Dimensions.StrikeZoneWidth)
	viper.SetDefault("field.dimensions.strikeZoneHeight", fc.Dimensions.StrikeZoneHeight)
	viper.SetDefault("field.dimensions.plateWidth", fc.Dimensions.PlateWidth)
	viper.SetDefault("field.dimensions.plateHeight", fc.Dimensions.PlateHeight)
	viper.SetDefault("field.dimensions.kneeHeight", fc.Dimensions.KneeHeight)
	viper.SetDefault("field.dimensions.moundDistance", fc.Dimensions.MoundDistance)

	tc := tracker.DefaultConfig()
	viper.SetDefault("tracker.capacity", tc.Capacity)
	viper.SetDefault("tracker.minInterval", tc.MinInterval)
	viper.SetDefault("tracker.minConfidence", tc.MinConfidence)
	viper.SetDefault("tracker.targetLabel", tc.TargetLabel)
	viper.SetDefault("tracker.minSpeedMph", tc.MinSpeedMPH)
	viper.SetDefault("tracker.maxSpeedMph", tc.MaxSpeedMPH)
	viper.SetDefault("tracker.estimator", tc.Estimator)
	viper.SetDefault("tracker.regressionWindow", tc.RegressionWindow)

	viper.SetDefault("session.restartBackoff", time.Second)
	viper.SetDefault("session.maxRestarts", 5)
}
