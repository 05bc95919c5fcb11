package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// RunMigrations creates the schema. The unique index on
// messages.message_id is the enforcement point for idempotent webhook
// ingestion, and contacts.phone_number backs the contact upsert.
func RunMigrations(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id VARCHAR(128) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			type VARCHAR(20) NOT NULL DEFAULT 'text',
			contact_number VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'sent',
			content TEXT,
			tenant_id BIGINT NOT NULL DEFAULT 1,
			user_id BIGINT,
			sent_at DATETIME,
			delivered_at DATETIME,
			read_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY ux_messages_message_id (message_id),
			INDEX idx_messages_contact (contact_number),
			INDEX idx_messages_status (status),
			INDEX idx_messages_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			phone_number VARCHAR(20) NOT NULL,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			messages_sent BIGINT NOT NULL DEFAULT 0,
			messages_received BIGINT NOT NULL DEFAULT 0,
			last_activity DATETIME,
			last_incoming_at DATETIME,
			last_outgoing_at DATETIME,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			tenant_id BIGINT NOT NULL DEFAULT 1,
			user_id BIGINT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY ux_contacts_phone (phone_number),
			INDEX idx_contacts_last_activity (last_activity)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS reminders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			tenant_id BIGINT NOT NULL DEFAULT 1,
			event_id BIGINT,
			client_id BIGINT,
			channel_type VARCHAR(10) NOT NULL,
			state VARCHAR(20) NOT NULL DEFAULT 'pending',
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			scheduled_at DATETIME NOT NULL,
			attempt_count INT NOT NULL DEFAULT 0,
			last_attempt_at DATETIME,
			last_error TEXT,
			subject VARCHAR(255) NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			event_title VARCHAR(255),
			event_date DATETIME,
			client_name VARCHAR(100),
			client_surname VARCHAR(100),
			client_email VARCHAR(255),
			client_phone VARCHAR(40),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_reminders_due (state, scheduled_at),
			INDEX idx_reminders_tenant (tenant_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS reminder_recipients (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			reminder_id BIGINT NOT NULL,
			kind VARCHAR(10) NOT NULL,
			name VARCHAR(100) NOT NULL DEFAULT '',
			surname VARCHAR(100) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(40) NOT NULL DEFAULT '',
			notified TINYINT(1) NOT NULL DEFAULT 0,
			CONSTRAINT fk_recipients_reminder FOREIGN KEY (reminder_id)
				REFERENCES reminders (id) ON DELETE CASCADE,
			INDEX idx_recipients_reminder (reminder_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS templates (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			language VARCHAR(10) NOT NULL,
			category VARCHAR(40) NOT NULL DEFAULT '',
			components TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			provider_id VARCHAR(128),
			rejection_reason TEXT,
			tenant_id BIGINT NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY ux_templates_name_language (name, language)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData inserts a handful of demo reminders when the reminders
// table is empty.
func SeedTestData(db *sqlx.DB) error {
	var count int

	if err := db.Get(&count, "SELECT COUNT(*) FROM reminders"); err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d reminders, skipping seed", count)
		return nil
	}

	seeds := []struct {
		channel  string
		priority string
		subject  string
		body     string
		phone    string
		email    string
	}{
		{"chat", "urgent", "", "Hola {{client_name}}, te recordamos tu turno de {{event_title}} el {{event_date}}.", "5491145551234", ""},
		{"email", "medium", "Recordatorio: {{event_title}}", "Hola {{client_name}} {{client_surname}}, tu cita es el {{event_date}}.", "", "cliente@example.com"},
		{"sms", "low", "", "Recordatorio {{event_title}} - {{event_date}}", "5491155556789", ""},
	}

	for _, s := range seeds {
		res, err := db.Exec(
			`INSERT INTO reminders
				(channel_type, state, priority, scheduled_at, subject, body, event_title, event_date, client_name, client_surname)
			 VALUES (?, 'pending', ?, NOW(), ?, ?, 'Consulta inicial', NOW(), 'Ana', 'García')`,
			s.channel, s.priority, s.subject, s.body,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}

		_, err = db.Exec(
			`INSERT INTO reminder_recipients (reminder_id, kind, name, surname, email, phone)
			 VALUES (?, 'client', 'Ana', 'García', ?, ?)`,
			id, s.email, s.phone,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test reminders", len(seeds))
	return nil
}
