// cmd/seeduser/main.go creates or updates the demo administrator.
// Uso: go run ./cmd/seeduser
package main

import (
	"context"
	"os"

	"logospos/internal/config"
	"logospos/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	username := envOr("SEED_USERNAME", "admin")
	password := envOr("SEED_PASSWORD", "logospos2026")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	if cfg.RunMigrations {
		if err := infra.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("migration error")
		}
	}

	result := db.WithContext(context.Background()).Exec(`
		INSERT INTO usuarios (id, username, nombre, email, password_hash, rol)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    nombre = EXCLUDED.nombre,
		    email = EXCLUDED.email,
		    rol = EXCLUDED.rol,
		    activo = true,
		    updated_at = NOW()
	`, uuid.New(), username, "Administrador", "admin@logospos.local", string(hash), "administrador")

	if result.Error != nil {
		log.Fatal().Err(result.Error).Msg("insert error")
	}
	log.Info().Str("username", username).Msg("usuario creado/actualizado")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
