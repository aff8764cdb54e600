package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uq_users_open_id'"}
	assert.True(t, isDuplicateKey(dup))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert user: %w", dup)))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isDuplicateKey(errors.New("1062")))
	assert.False(t, isDuplicateKey(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	ref := &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	assert.True(t, isForeignKeyViolation(ref))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("delete listing: %w", ref)))
	assert.False(t, isForeignKeyViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isForeignKeyViolation(nil))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), ErrNotFound)
	other := errors.New("conn reset")
	assert.Equal(t, other, notFound(other))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0, 50, 500))
	assert.Equal(t, 500, clampLimit(9000, 50, 500))
	assert.Equal(t, 7, clampLimit(7, 50, 500))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_off\\`, escapeLike(`100%_off\`))
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, nullStr(sql.NullString{}))
	assert.Equal(t, "x", *nullStr(sql.NullString{String: "x", Valid: true}))

	now := time.Now()
	assert.Nil(t, nullTime(sql.NullTime{}))
	assert.Equal(t, now, *nullTime(sql.NullTime{Time: now, Valid: true}))
}

func TestEncodeJSON(t *testing.T) {
	b, err := encodeJSON([]string{"a.jpg"})
	assert.NoError(t, err)
	assert.JSONEq(t, `["a.jpg"]`, string(b))

	b, err = encodeJSON(nil)
	assert.NoError(t, err)
	assert.Nil(t, b)
}
