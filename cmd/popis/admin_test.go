package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func TestCreateAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := createAdmin(ctx, database, "root", "root@example.com", "password", "Acme", model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, u.Role)
	assert.Equal(t, "Acme", u.OrganizationName)

	_, err = createAdmin(ctx, database, "root", "", "password", "", model.RoleAdmin)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = createAdmin(ctx, database, "other", "", "short", "", model.RoleAdmin)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
