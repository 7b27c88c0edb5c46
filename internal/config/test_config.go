package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8081,
			RequestTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "roles_permissions_test",
			User:     "test_user",
			Password: "test_password",
			SSLMode:  "disable",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
			Issuer: "roles-permissions-test",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      time.Minute,
		},
		Tasks: TasksConfig{
			Concurrency:      1,
			SessionPurgeCron: "@hourly",
		},
		Accounts: AccountsConfig{
			DefaultRole: "viewer",
			BcryptCost:  4,
		},
	}
}
