package repository

import (
	"database/sql"
	"fmt"

	"CampusTrade/model"
)

// UserRepository defines the interface for user data operations.
// 条件更新类操作返回受影响行数，0 行表示条件不满足或用户不存在，由调用方解释。
type UserRepository interface {
	FindByUsername(username string) (*model.User, error)
	FindByUsernameWithCredential(username string) (*model.User, error)
	Create(user *model.User) (int64, error)
	UpdateProfile(username, gender, phone, email, address string) (int64, error)
	ChangePassword(username, oldHashed, newHashed string) (int64, error)
	ResetPassword(username, newHashed string) (int64, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

// FindByUsername retrieves a user by username, excluding the password hash.
func (r *mysqlUserRepository) FindByUsername(username string) (*model.User, error) {
	query := "SELECT id, username, gender, phone, email, address FROM users WHERE username = ?"
	row := r.db.QueryRow(query, username)

	user := &model.User{}
	var gender, phone, email, address sql.NullString
	err := row.Scan(&user.ID, &user.Username, &gender, &phone, &email, &address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user row for username %s: %w", username, err)
	}

	user.Gender = gender.String
	user.Phone = phone.String
	user.Email = email.String
	user.Address = address.String
	return user, nil
}

// FindByUsernameWithCredential retrieves a user including the password hash.
// 仅供登录与修改密码流程使用。
func (r *mysqlUserRepository) FindByUsernameWithCredential(username string) (*model.User, error) {
	query := "SELECT id, username, password, gender, phone, email, address FROM users WHERE username = ?"
	row := r.db.QueryRow(query, username)

	user := &model.User{}
	var gender, phone, email, address sql.NullString
	err := row.Scan(&user.ID, &user.Username, &user.Password, &gender, &phone, &email, &address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user row for username %s: %w", username, err)
	}

	user.Gender = gender.String
	user.Phone = phone.String
	user.Email = email.String
	user.Address = address.String
	return user, nil
}

// Create adds a new user to the database.
// 用户名是否已存在由调用方先行检查，这里不做存在性判断。
func (r *mysqlUserRepository) Create(user *model.User) (int64, error) {
	query := "INSERT INTO users (username, password, gender, phone, email, address) VALUES (?, ?, ?, ?, ?, ?)"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(user.Username, user.Password, user.Gender, user.Phone, user.Email, user.Address)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// UpdateProfile overwrites gender, phone, email and address for the given user.
// 五个字段整体覆盖，未修改的字段由调用方传入原值。
func (r *mysqlUserRepository) UpdateProfile(username, gender, phone, email, address string) (int64, error) {
	query := "UPDATE users SET gender = ?, phone = ?, email = ?, address = ? WHERE username = ?"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update profile statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(gender, phone, email, address, username)
	if err != nil {
		return 0, fmt.Errorf("failed to execute update profile statement: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for profile update: %w", err)
	}
	return rows, nil
}

// ChangePassword updates the password hash only when the stored hash matches oldHashed.
func (r *mysqlUserRepository) ChangePassword(username, oldHashed, newHashed string) (int64, error) {
	query := "UPDATE users SET password = ? WHERE username = ? AND password = ?"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare change password statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(newHashed, username, oldHashed)
	if err != nil {
		return 0, fmt.Errorf("failed to execute change password statement: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for password change: %w", err)
	}
	return rows, nil
}

// ResetPassword unconditionally overwrites the password hash (找回密码流程).
func (r *mysqlUserRepository) ResetPassword(username, newHashed string) (int64, error) {
	query := "UPDATE users SET password = ? WHERE username = ?"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare reset password statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(newHashed, username)
	if err != nil {
		return 0, fmt.Errorf("failed to execute reset password statement: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for password reset: %w", err)
	}
	return rows, nil
}
