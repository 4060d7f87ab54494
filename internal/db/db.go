package db

import (
	"database/sql"
	"log"

	_ "github.com/go-sql-driver/mysql"
)

func InitDB(dbURL string) *sql.DB {
	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		log.Fatal("❌ Could not connect to database:", err)
	}

	err = db.Ping()
	if err != nil {
		log.Fatal("❌ Database is not responding:", err)
	}

	log.Println("✅ Connected to database")
	return db
}

func RunMigrations(db *sql.DB) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100),
			email VARCHAR(100),
			password_hash VARCHAR(255),
			role VARCHAR(50),
			points_balance BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_email (email),
			UNIQUE KEY uq_username (username)
		);`,
		`CREATE TABLE IF NOT EXISTS balances (
			user_id INT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			total_recharged BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id INT AUTO_INCREMENT PRIMARY KEY,
			entry_id CHAR(36) NOT NULL,
			user_id INT NOT NULL,
			direction VARCHAR(10) NOT NULL,
			category VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			description VARCHAR(255),
			metadata TEXT,
			created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uq_entry_id (entry_id),
			INDEX idx_user_created (user_id, created_at DESC),
			INDEX idx_category (category)
		);`,
		`CREATE TABLE IF NOT EXISTS recharge_requests (
			id INT AUTO_INCREMENT PRIMARY KEY,
			request_id CHAR(36) NOT NULL,
			user_id INT NOT NULL,
			fiat_amount DECIMAL(20,2) NOT NULL,
			points_to_add BIGINT NOT NULL,
			method VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			details TEXT,
			metadata TEXT,
			notes VARCHAR(512),
			requested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			decided_at DATETIME NULL,
			expires_at DATETIME NULL,
			UNIQUE KEY uq_request_id (request_id),
			INDEX idx_user_status (user_id, status),
			INDEX idx_status_requested (status, requested_at)
		);`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id INT AUTO_INCREMENT PRIMARY KEY,
			request_id CHAR(36) NOT NULL,
			user_id INT NOT NULL,
			fiat_amount DECIMAL(20,2) NOT NULL,
			points_to_deduct BIGINT NOT NULL,
			method VARCHAR(20) NOT NULL,
			payout_details TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			metadata TEXT,
			notes VARCHAR(512),
			requested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			decided_at DATETIME NULL,
			UNIQUE KEY uq_request_id (request_id),
			INDEX idx_user_status (user_id, status),
			INDEX idx_status_requested (status, requested_at)
		);`,
	}

	for _, q := range queries {
		_, err := db.Exec(q)
		if err != nil {
			log.Fatal("Migration failed:", err)
		}
	}
	log.Println("Migrations completed")
}
