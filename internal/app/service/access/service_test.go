package access

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cursopassei/checkout/internal/models"
)

func strPtr(s string) *string { return &s }

func TestBuildUserPayload_SplitsNameAtFirstSpace(t *testing.T) {
	sale := &models.Sale{
		ID:          "sale-1",
		StudentName: "  Maria da Silva ",
		Email:       "maria@example.com",
		Phone:       "(11) 98765-4321",
		CpfCnpj:     strPtr("123.456.789-00"),
		Price:       decimal.NewFromInt(100),
	}

	p := buildUserPayload(sale, "Secret#1")

	require.Equal(t, "Maria da Silva", p.Name)
	require.Equal(t, "da Silva", p.LastName)
	require.Equal(t, "maria@example.com", p.Email)
	require.Equal(t, "Secret#1", p.Password)
	require.Equal(t, "12345678900", p.Document)
	require.Equal(t, "11987654321", p.Phone)
	require.Equal(t, "sale-1", p.ReferenceID)
	require.Equal(t, time.Now().Format(time.DateOnly), p.AccessionDate)
}

func TestBuildUserPayload_SingleName(t *testing.T) {
	sale := &models.Sale{ID: "sale-2", StudentName: "Madonna", Phone: "11 1111-1111"}

	p := buildUserPayload(sale, "pw")

	require.Equal(t, "Madonna", p.Name)
	require.Equal(t, "", p.LastName)
	require.Equal(t, "", p.Document)
	require.Equal(t, "1111111111", p.Phone)
}

func TestAllGranted(t *testing.T) {
	granted := models.Sale{TheMembersAccessGranted: true}
	pending := models.Sale{TheMembersAccessGranted: false}

	require.True(t, allGranted(nil))
	require.True(t, allGranted([]models.Sale{granted, granted}))
	require.False(t, allGranted([]models.Sale{granted, pending}))
}
