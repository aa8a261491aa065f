package config

import "os"

const (
	apiBaseURLVar  = "CC_API_BASE_URL"
	authBaseURLVar = "CC_AUTH_BASE_URL"
	chatBaseURLVar = "CC_CHAT_API_BASE_URL"
	appNameVar     = "APP_NAME"

	productionAPIBase  = "https://dashboard-control-back.onrender.com/api"
	productionAuthBase = "https://dashboard-control-back.onrender.com"
	devAPIBase         = "http://localhost:8000/api"
	devAuthBase        = "http://localhost:8000"
)

type EnvVars struct {
	hostname string
}

var _ Config = EnvVars{}

func (e EnvVars) IsProduction() bool {
	return e.hostname != "localhost" && e.hostname != "127.0.0.1"
}

func (e EnvVars) APIBaseURL() string {
	if e.IsProduction() {
		return GetEnv(apiBaseURLVar, productionAPIBase)
	}
	return GetEnv(apiBaseURLVar, devAPIBase)
}

func (e EnvVars) AuthBaseURL() string {
	if e.IsProduction() {
		return GetEnv(authBaseURLVar, productionAuthBase)
	}
	return GetEnv(authBaseURLVar, devAuthBase)
}

func (e EnvVars) ChatAPIBaseURL() string {
	return GetEnv(chatBaseURLVar, "")
}

func (EnvVars) AppName() string {
	return GetEnv(appNameVar, "Command Center")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
