package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// schemaStatements is applied one statement at a time on startup. No foreign
// keys: existence checks live at the handler layer and the memory store has
// to behave identically.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(64) NOT NULL,
		password_hash VARCHAR(128) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		avatar_url VARCHAR(512) NOT NULL DEFAULT '',
		friends_updated_at BIGINT NOT NULL DEFAULT 0,
		groups_updated_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS friendships (
		user_id INT UNSIGNED NOT NULL,
		friend_id INT UNSIGNED NOT NULL,
		PRIMARY KEY (user_id, friend_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ugroups (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(128) NOT NULL,
		creator_id INT UNSIGNED NOT NULL,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS group_members (
		group_id INT UNSIGNED NOT NULL,
		user_id INT UNSIGNED NOT NULL,
		PRIMARY KEY (group_id, user_id),
		KEY idx_group_members_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		sender_id INT UNSIGNED NOT NULL,
		receiver_id INT UNSIGNED NOT NULL,
		message_type VARCHAR(16) NOT NULL DEFAULT 'text',
		message TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_messages_pair_ts (sender_id, receiver_id, timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ugroup_messages (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		group_id INT UNSIGNED NOT NULL,
		sender_id INT UNSIGNED NOT NULL,
		message_type VARCHAR(16) NOT NULL DEFAULT 'text',
		message TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_ugroup_messages_group_ts (group_id, timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// MySQLStore is the sqlx-backed Store. Message (id, timestamp) assignment
// rides on auto-increment: equal-millisecond inserts still get distinct
// ascending ids, which is what the (timestamp, id) sort relies on.
type MySQLStore struct {
	db *sqlx.DB
}

var _ Store = (*MySQLStore)(nil)

// OpenMySQL connects, configures the pool, and applies the schema.
func OpenMySQL(ctx context.Context, url string) (*MySQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", url)
	if err != nil {
		return nil, fmt.Errorf("store: connect mysql: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &MySQLStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

// notFound collapses the driver's empty-result error into the domain
// sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (s *MySQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *MySQLStore) CreateUser(ctx context.Context, username, passwordHash string, role model.Role) (uint32, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, string(role))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (s *MySQLStore) UserByID(ctx context.Context, id uint32) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

func (s *MySQLStore) Users(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY id ASC`)
	return users, err
}

func (s *MySQLStore) UpdatePassword(ctx context.Context, id uint32, passwordHash string) error {
	return s.updateUserColumn(ctx, id, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash)
}

func (s *MySQLStore) UpdateAvatar(ctx context.Context, id uint32, url string) error {
	return s.updateUserColumn(ctx, id, `UPDATE users SET avatar_url = ? WHERE id = ?`, url)
}

func (s *MySQLStore) updateUserColumn(ctx context.Context, id uint32, query, value string) error {
	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from an update to the same value.
		var exists int
		if err := s.db.GetContext(ctx, &exists, `SELECT 1 FROM users WHERE id = ?`, id); err != nil {
			return notFound(err)
		}
	}
	return nil
}

func (s *MySQLStore) DeleteUser(ctx context.Context, id uint32) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return model.ErrNotFound
		}

		var partners []uint32
		if err := tx.SelectContext(ctx, &partners,
			`SELECT friend_id FROM friendships WHERE user_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM friendships WHERE user_id = ? OR friend_id = ?`, id, id); err != nil {
			return err
		}
		if len(partners) > 0 {
			query, args, err := sqlx.In(
				`UPDATE users SET friends_updated_at = ? WHERE id IN (?)`,
				time.Now().UnixMilli(), partners)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM group_members WHERE user_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM messages WHERE sender_id = ? OR receiver_id = ?`, id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ugroup_messages WHERE sender_id = ?`, id); err != nil {
			return err
		}
		return nil
	})
}

func (s *MySQLStore) FriendIDs(ctx context.Context, user uint32) ([]uint32, error) {
	ids := []uint32{}
	err := s.db.SelectContext(ctx, &ids,
		`SELECT friend_id FROM friendships WHERE user_id = ? ORDER BY friend_id ASC`, user)
	return ids, err
}

func (s *MySQLStore) Friends(ctx context.Context, user uint32) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT u.id, u.username, u.avatar_url
		 FROM friendships f JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = ? ORDER BY u.id ASC`, user)
	return out, err
}

func (s *MySQLStore) AddFriend(ctx context.Context, user, friend uint32) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO friendships (user_id, friend_id) VALUES (?, ?)`, user, friend)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO friendships (user_id, friend_id) VALUES (?, ?)`, friend, user); err != nil {
			return err
		}
		return bumpFriends(ctx, tx, time.Now().UnixMilli(), user, friend)
	})
}

func (s *MySQLStore) RemoveFriend(ctx context.Context, user, friend uint32) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM friendships WHERE user_id = ? AND friend_id = ?`, user, friend)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM friendships WHERE user_id = ? AND friend_id = ?`, friend, user); err != nil {
			return err
		}
		return bumpFriends(ctx, tx, time.Now().UnixMilli(), user, friend)
	})
}

func bumpFriends(ctx context.Context, tx *sqlx.Tx, now int64, users ...uint32) error {
	query, args, err := sqlx.In(`UPDATE users SET friends_updated_at = ? WHERE id IN (?)`, now, users)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *MySQLStore) CreateGroup(ctx context.Context, name string, creator uint32) (uint32, error) {
	var id uint32
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO ugroups (name, creator_id) VALUES (?, ?)`, name, creator)
		if err != nil {
			return err
		}
		gid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint32(gid)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`, id, creator); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET groups_updated_at = ? WHERE id = ?`, time.Now().UnixMilli(), creator)
		return err
	})
	return id, err
}

func (s *MySQLStore) GroupByID(ctx context.Context, id uint32) (model.Group, error) {
	var g model.Group
	err := s.db.GetContext(ctx, &g, `SELECT * FROM ugroups WHERE id = ?`, id)
	if err != nil {
		return model.Group{}, notFound(err)
	}
	return g, nil
}

func (s *MySQLStore) GroupsOf(ctx context.Context, user uint32) ([]model.Group, error) {
	out := []model.Group{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT g.id, g.name, g.creator_id
		 FROM group_members m JOIN ugroups g ON g.id = m.group_id
		 WHERE m.user_id = ? ORDER BY g.id ASC`, user)
	return out, err
}

func (s *MySQLStore) MemberIDs(ctx context.Context, group uint32) ([]uint32, error) {
	ids := []uint32{}
	err := s.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id ASC`, group)
	return ids, err
}

func (s *MySQLStore) AddMember(ctx context.Context, group, user uint32) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`, group, user)
	if err != nil {
		return err
	}
	return s.bumpGroupsIfChanged(ctx, res, user)
}

func (s *MySQLStore) RemoveMember(ctx context.Context, group, user uint32) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, group, user)
	if err != nil {
		return err
	}
	return s.bumpGroupsIfChanged(ctx, res, user)
}

func (s *MySQLStore) bumpGroupsIfChanged(ctx context.Context, res sql.Result, user uint32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET groups_updated_at = ? WHERE id = ?`, time.Now().UnixMilli(), user)
	return err
}

func (s *MySQLStore) InsertPrivateMessage(ctx context.Context, sender, receiver uint32, typ model.MessageType, body string) (uint64, int64, error) {
	ts := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, message_type, message, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		sender, receiver, string(typ), body, ts)
	if err != nil {
		return 0, 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}
	return uint64(id), ts, nil
}

func (s *MySQLStore) InsertGroupMessage(ctx context.Context, group, sender uint32, typ model.MessageType, body string) (uint64, int64, error) {
	ts := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ugroup_messages (group_id, sender_id, message_type, message, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		group, sender, string(typ), body, ts)
	if err != nil {
		return 0, 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}
	return uint64(id), ts, nil
}

func (s *MySQLStore) PrivateMessageByID(ctx context.Context, id uint64) (model.PrivateMessage, error) {
	var m model.PrivateMessage
	err := s.db.GetContext(ctx, &m, `SELECT * FROM messages WHERE id = ?`, id)
	if err != nil {
		return model.PrivateMessage{}, notFound(err)
	}
	return m, nil
}

func (s *MySQLStore) GroupMessageByID(ctx context.Context, id uint64) (model.GroupMessage, error) {
	var m model.GroupMessage
	err := s.db.GetContext(ctx, &m, `SELECT * FROM ugroup_messages WHERE id = ?`, id)
	if err != nil {
		return model.GroupMessage{}, notFound(err)
	}
	return m, nil
}

func (s *MySQLStore) PrivateMessages(ctx context.Context, a, b uint32, offset int) ([]model.PrivateMessage, error) {
	out := []model.PrivateMessage{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY timestamp ASC, id ASC LIMIT ? OFFSET ?`,
		a, b, b, a, PageSize, offset*PageSize)
	return out, err
}

func (s *MySQLStore) GroupMessages(ctx context.Context, group uint32, offset int) ([]model.GroupMessage, error) {
	out := []model.GroupMessage{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM ugroup_messages WHERE group_id = ?
		 ORDER BY timestamp ASC, id ASC LIMIT ? OFFSET ?`,
		group, PageSize, offset*PageSize)
	return out, err
}

func (s *MySQLStore) PrivateMessagesAfter(ctx context.Context, a, b uint32, ts int64) ([]model.PrivateMessage, error) {
	out := []model.PrivateMessage{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM messages
		 WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		   AND timestamp > ?
		 ORDER BY timestamp ASC, id ASC`,
		a, b, b, a, ts)
	return out, err
}

func (s *MySQLStore) GroupMessagesAfter(ctx context.Context, group uint32, ts int64) ([]model.GroupMessage, error) {
	out := []model.GroupMessage{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM ugroup_messages WHERE group_id = ? AND timestamp > ?
		 ORDER BY timestamp ASC, id ASC`,
		group, ts)
	return out, err
}

func (s *MySQLStore) LatestPrivateTimestamp(ctx context.Context, a, b uint32) (int64, error) {
	var ts int64
	err := s.db.GetContext(ctx, &ts,
		`SELECT COALESCE(MAX(timestamp), 0) FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`,
		a, b, b, a)
	return ts, err
}

func (s *MySQLStore) LatestGroupTimestamp(ctx context.Context, group uint32) (int64, error) {
	var ts int64
	err := s.db.GetContext(ctx, &ts,
		`SELECT COALESCE(MAX(timestamp), 0) FROM ugroup_messages WHERE group_id = ?`, group)
	return ts, err
}

func (s *MySQLStore) DeletePrivateMessage(ctx context.Context, id uint64) error {
	return s.deleteByID(ctx, `DELETE FROM messages WHERE id = ?`, id)
}

func (s *MySQLStore) DeleteGroupMessage(ctx context.Context, id uint64) error {
	return s.deleteByID(ctx, `DELETE FROM ugroup_messages WHERE id = ?`, id)
}

func (s *MySQLStore) deleteByID(ctx context.Context, query string, id uint64) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
