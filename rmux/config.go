package rmux

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// Configuration represents the data in your config.json file.
type Configuration struct {
	GZip   bool              `json:"gzip"`
	Ports  PortConfiguration `json:"ports"`
	Secret string            `json:"secret"`
}

// PortConfiguration lets you configure the port that the server will listen on.
type PortConfiguration struct {
	HTTP int `json:"http"`
}

// defaultConfiguration returns the configuration used when no
// config file is present.
func defaultConfiguration() *Configuration {
	return &Configuration{
		GZip: true,
		Ports: PortConfiguration{
			HTTP: 4000,
		},
	}
}

// LoadConfig deserializes the given config file.
func LoadConfig(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	config := defaultConfiguration()

	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Load loads the application configuration from config.json.
func (app *Application) Load() {
	config, err := LoadConfig("config.json")

	if err != nil {
		// Ignore missing config file, we can perfectly run without one
		return
	}

	app.Config = config

	if config.Secret == "" {
		return
	}

	key, err := hex.DecodeString(config.Secret)

	if err == nil {
		err = app.SetSecret(key)
	}

	if err != nil {
		app.Logger.Warn("ignoring invalid cookie secret", zap.Error(err))
	}
}
