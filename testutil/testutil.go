package testutil

import (
	"testing"

	"users-service/db"
	"users-service/entities"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// OpenInMemoryDB opens a migrated in-memory SQLite database private to name.
// The database is closed through t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) db.Database {
	t.Helper()
	logrus.SetLevel(logrus.WarnLevel)

	d, err := db.Connect("sqlite://file:"+name+"?mode=memory&cache=shared", db.Options{Migrate: true})
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// AddUser inserts a user directly through the ORM, bypassing validation.
func AddUser(t *testing.T, d db.Database, username, email string) *entities.User {
	t.Helper()
	user := &entities.User{Username: username, Email: email}
	require.NoError(t, d.GetDB().Create(user).Error, "add user")
	return user
}
