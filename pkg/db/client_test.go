package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type clientTestRow struct {
	ID    int
	Label string
}

func openTestClient(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	// A named shared-memory DSN keeps the database alive across pooled
	// connections while isolating each test.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&clientTestRow{}))
	return &Client{handle: conn}, conn
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	client, conn := openTestClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&clientTestRow{Label: "kept"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&clientTestRow{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client, conn := openTestClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&clientTestRow{Label: "discarded"}).Error; err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&clientTestRow{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestClientPing(t *testing.T) {
	client, _ := openTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}
