package config

import (
	"os"
	"strconv"
	"time"

	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
)

const DATABASE_TYPE = "FLOWSIM_DATABASE_TYPE"
const DATABASE_URL = "FLOWSIM_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "FLOWSIM_DATABASE_SQLLITE_FILE_NAME"
const ENGINE_CHECK_DB_INTERVAL = "FLOWSIM_ENGINE_CHECK_DB_INTERVAL"
const ENGINE_BATCH_SIZE = "FLOWSIM_ENGINE_BATCH_SIZE"         //number of simulations to pull from the database at a time
const ENGINE_EXECUTOR_GROUP = "FLOWSIM_ENGINE_EXECUTOR_GROUP" //the group id of the executor that it will process simulations from
const ENGINE_EXECUTOR_SIZE = "FLOWSIM_ENGINE_EXECUTOR_SIZE"   //number of workers to run ie the parallel nature of the jobs
const MAX_ITERATIONS = "FLOWSIM_MAX_ITERATIONS"
const MAX_EXECUTION_TIME = "FLOWSIM_MAX_EXECUTION_TIME" //seconds
const MAX_CONDITION_DEPTH = "FLOWSIM_MAX_CONDITION_DEPTH"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}

	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_CHECK_DB_INTERVAL {
		return "3s" // default to 3 seconds
	}
	if settingKey == ENGINE_BATCH_SIZE {
		return "5"
	}
	if settingKey == ENGINE_EXECUTOR_SIZE {
		return "5"
	}
	if settingKey == ENGINE_EXECUTOR_GROUP {
		return "default"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./flowsim.db"
	}
	if settingKey == MAX_ITERATIONS {
		return "1000"
	}
	if settingKey == MAX_EXECUTION_TIME {
		return "30" // seconds
	}
	if settingKey == MAX_CONDITION_DEPTH {
		// reserved: the single-expression grammar has no nesting, so
		// the evaluator does not enforce this yet
		return "10"
	}
	return ""
}

// GuardSettings assembles the execution core's safety ceilings from the
// environment.
func GuardSettings() core.Settings {
	settings := core.DefaultSettings()
	if v := GetSystemSettingInteger(MAX_ITERATIONS); v > 0 {
		settings.MaxIterations = v
	}
	if v := GetSystemSettingInteger(MAX_EXECUTION_TIME); v > 0 {
		settings.MaxExecutionTime = time.Duration(v) * time.Second
	}
	return settings
}
