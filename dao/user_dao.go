// gatekeeper/dao/user_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

const selectCredentials = `SELECT u.userid, u.pw, COALESCE(g.app, ''), COALESCE(g.role, '')
FROM yada_user u
LEFT JOIN yada_ug g ON g.userid = u.userid
WHERE u.userid = $1
ORDER BY g.app, g.role`

type UserDAO struct {
	DB Querier
}

func NewUserDAO(db Querier) *UserDAO {
	return &UserDAO{DB: db}
}

// FindCredentials returns the user's password hash and grants, one grant per
// app in app order.
func (dao *UserDAO) FindCredentials(ctx context.Context, userID string) (*model.Credentials, error) {
	start := time.Now()

	rows, err := dao.DB.Query(ctx, selectCredentials, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	defer rows.Close()

	var creds *model.Credentials
	index := make(map[string]int)
	for rows.Next() {
		var id, hash, app, role string
		if err := rows.Scan(&id, &hash, &app, &role); err != nil {
			return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
		}
		if creds == nil {
			creds = &model.Credentials{UserID: id, PasswordHash: hash}
		}
		if app == "" {
			continue
		}
		i, ok := index[app]
		if !ok {
			i = len(creds.Grants)
			index[app] = i
			creds.Grants = append(creds.Grants, model.Grant{App: app})
		}
		if role != "" {
			creds.Grants[i].Keys = append(creds.Grants[i].Keys, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	if creds == nil {
		return nil, sec_errors.ErrUserNotFound
	}

	logger.Debug("Credentials retrieved",
		zap.String("userID", userID),
		zap.Int("apps", len(creds.Grants)),
		zap.Duration("duration", time.Since(start)))
	return creds, nil
}
