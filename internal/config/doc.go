// Package config loads pathwatch.json.
//
// Values come from, in order: built-in defaults, the JSON file (if any), and
// PATHWATCH_* environment variables.
//
//	{
//	  "addr": "localhost:7070",
//	  "logLevel": "debug",
//	  "metrics": {"enabled": true, "namespace": "pathwatch"},
//	  "feed": {"sendBuffer": 256, "writeTimeout": 10000000000}
//	}
package config
