package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateISBN(t *testing.T) {
	cases := []struct {
		name  string
		isbn  string
		valid bool
	}{
		{"valid ISBN-13", "9780306406157", true},
		{"ISBN-13 flipped check digit", "9780306406158", false},
		{"valid ISBN-10", "0306406152", true},
		{"ISBN-10 with X check character", "097522980X", true},
		{"ISBN-10 wrong check digit", "0306406153", false},
		{"X in non-check position", "09752X980X", false},
		{"too short", "12345", false},
		{"too long", "97803064061579", false},
		{"letters in ISBN-13", "97803064061X7", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateISBN(tc.isbn)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidISBN)
			}
		})
	}
}

func TestValidatePublishDate(t *testing.T) {
	require.NoError(t, ValidatePublishDate("04/2019"))
	require.NoError(t, ValidatePublishDate(""))
	assert.ErrorIs(t, ValidatePublishDate("13/2019"), ErrInvalidPublishDate)
	assert.ErrorIs(t, ValidatePublishDate("2019-04"), ErrInvalidPublishDate)
	assert.ErrorIs(t, ValidatePublishDate("4/19"), ErrInvalidPublishDate)
}
