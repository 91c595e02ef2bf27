package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

func memoryDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "whatever", nil)
	assert.ErrorContains(t, err, "oracle")
}

func TestMigrateAndTranslateDuplicates(t *testing.T) {
	gdb, err := Connect(DriverSQLite, memoryDSN(), logger.Discard())
	require.NoError(t, err)
	defer Close(gdb)
	require.NoError(t, Migrate(gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}

	u := models.User{Name: "A", Email: "a@example.com", Password: "x", Role: models.RoleBuyer, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)

	dup := models.User{Name: "B", Email: "a@example.com", Password: "x", Role: models.RoleSeller, IsActive: true}
	assert.ErrorIs(t, gdb.Create(&dup).Error, gorm.ErrDuplicatedKey)
}
