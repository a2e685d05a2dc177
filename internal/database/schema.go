package database

import (
	"context"
	"database/sql"
)

// Schema statements executed at startup.  All DDL is idempotent so the
// server can start against a fresh or an existing database.  The unique
// key on dosage_logs (user_id, medicine_id, scheduled_at) is what makes
// log generation safe under concurrent requests: duplicate expansions of
// the same slot are rejected by the engine, not by a check-then-insert.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id          VARCHAR(128)    NOT NULL,
		name             VARCHAR(255)    NOT NULL,
		tablets_per_dose INT UNSIGNED    NOT NULL DEFAULT 1,
		total_tablets    INT UNSIGNED    NOT NULL DEFAULT 0,
		consumed_tablets INT UNSIGNED    NOT NULL DEFAULT 0,
		food_timing      VARCHAR(255)    NOT NULL DEFAULT '',
		image_url        VARCHAR(1024)   NULL,
		created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_medicines_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS medicine_slots (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		medicine_id BIGINT UNSIGNED NOT NULL,
		slot        ENUM('MORNING','AFTERNOON','EVENING','NIGHT') NOT NULL,
		dose_time   CHAR(5)         NOT NULL,
		position    INT UNSIGNED    NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		UNIQUE KEY uq_medicine_slot (medicine_id, slot),
		CONSTRAINT fk_slots_medicine FOREIGN KEY (medicine_id)
			REFERENCES medicines (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS dosage_logs (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id          VARCHAR(128)    NOT NULL,
		medicine_id      BIGINT UNSIGNED NOT NULL,
		medicine_name    VARCHAR(255)    NOT NULL,
		scheduled_at     DATETIME        NOT NULL,
		status           ENUM('PENDING','TAKEN','MISSED') NOT NULL DEFAULT 'PENDING',
		taken_at         DATETIME        NULL,
		tablets_per_dose INT UNSIGNED    NOT NULL DEFAULT 1,
		slot             ENUM('MORNING','AFTERNOON','EVENING','NIGHT') NOT NULL,
		note             TEXT            NOT NULL,
		created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_user_med_sched (user_id, medicine_id, scheduled_at),
		KEY idx_logs_user_status_sched (user_id, status, scheduled_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS incidents (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		incident_type  VARCHAR(100)    NOT NULL,
		incident_date  CHAR(10)        NOT NULL,
		incident_time  CHAR(5)         NOT NULL,
		location       VARCHAR(512)    NOT NULL,
		description    TEXT            NOT NULL,
		reporter_name  VARCHAR(255)    NOT NULL,
		reporter_phone VARCHAR(32)     NOT NULL,
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_incidents_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.  It stops at the first failed
// statement and returns that error.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
