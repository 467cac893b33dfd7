package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the service needs.  Statements are
// idempotent so Migrate can run on each deploy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('ADMIN','CUSTOMER') NOT NULL DEFAULT 'CUSTOMER',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS halls (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name               VARCHAR(255) NOT NULL,
		location           VARCHAR(255) NULL,
		address            VARCHAR(512) NULL,
		capacity           INT UNSIGNED NOT NULL,
		default_rate_cents BIGINT NOT NULL,
		description        TEXT NULL,
		amenities          JSON NULL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS availability (
		hall_id      BIGINT UNSIGNED NOT NULL,
		date         DATE NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (hall_id, date),
		CONSTRAINT fk_availability_hall FOREIGN KEY (hall_id) REFERENCES halls (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pricing_rules (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hall_id             BIGINT UNSIGNED NOT NULL,
		start_date          DATE NOT NULL,
		end_date            DATE NOT NULL,
		price_per_day_cents BIGINT NOT NULL,
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_pricing_range (hall_id, start_date, end_date),
		CONSTRAINT fk_pricing_hall FOREIGN KEY (hall_id) REFERENCES halls (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hall_id              BIGINT UNSIGNED NOT NULL,
		user_id              BIGINT UNSIGNED NOT NULL,
		start_date           DATE NOT NULL,
		end_date             DATE NOT NULL,
		days                 INT NOT NULL,
		total_cents          BIGINT NOT NULL,
		status               VARCHAR(32) NOT NULL,
		event_name           VARCHAR(255) NOT NULL,
		contact_name         VARCHAR(255) NOT NULL,
		contact_phone        VARCHAR(64) NOT NULL,
		contact_email        VARCHAR(255) NULL,
		notes                TEXT NULL,
		slip_ref             VARCHAR(512) NULL,
		paid_at              DATETIME NULL,
		verified_at          DATETIME NULL,
		rejected_at          DATETIME NULL,
		reject_reason        TEXT NULL,
		cancel_requested_at  DATETIME NULL,
		cancel_reason        TEXT NULL,
		cancelled_at         DATETIME NULL,
		cancel_rejected_at   DATETIME NULL,
		cancel_reject_reason TEXT NULL,
		created_at           DATETIME NOT NULL,
		updated_at           DATETIME NOT NULL,
		KEY idx_bookings_hall_range (hall_id, start_date, end_date),
		KEY idx_bookings_user (user_id, created_at),
		KEY idx_bookings_status (status),
		CONSTRAINT fk_bookings_hall FOREIGN KEY (hall_id) REFERENCES halls (id),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
