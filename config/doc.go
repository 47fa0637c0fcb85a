// Package config reads the host configuration from the environment.
//
//	ARIGATO_MAX_HANDLES         live AudioUnit objects the table holds (1024)
//	ARIGATO_OWNERSHIP           non-owning | shared (non-owning)
//	ARIGATO_LOG_LEVEL           debug | info | warn | error (info)
//	ARIGATO_LOG_FORMAT          console | json (console)
//	ARIGATO_MEMORY_LIMIT_PAGES  guest memory cap in 64KiB pages (wazero default)
//
// Variables may also come from a .env file loaded with LoadDotEnv.
package config
