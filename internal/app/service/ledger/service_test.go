package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cursopassei/checkout/internal/models"
)

func strPtr(s string) *string { return &s }

func TestGroupSales_CollapsesCartByPaymentID(t *testing.T) {
	payID := "pay_cart"
	title := "Curso A"
	other := "Curso B"
	rows := []*models.Sale{
		{ID: "s1", StudentName: "Maria", Email: "m@x.com", Price: decimal.NewFromInt(300), AsaasPaymentID: &payID, CourseTitleSnapshot: &title},
		{ID: "s2", StudentName: "Maria", Email: "m@x.com", Price: decimal.NewFromInt(100), AsaasPaymentID: &payID, CourseTitleSnapshot: &other},
		{ID: "s3", StudentName: "Maria", Email: "m@x.com", Price: decimal.NewFromInt(50), AsaasPaymentID: &payID, CourseTitleSnapshot: &other},
	}

	groups := GroupSales(rows)

	require.Len(t, groups, 1)
	g := groups[0]
	require.Equal(t, "pay_cart", g.AsaasPaymentID)
	require.Equal(t, "s1", g.MainSaleID)
	require.Equal(t, "Carrinho: Curso A + 2 outros", g.Label)
	require.Equal(t, 3, g.CoursesCount)
	require.True(t, g.TotalPrice.Equal(decimal.NewFromInt(300)))
}

func TestGroupSales_SingleSaleKeepsCourseTitle(t *testing.T) {
	payID := "pay_1"
	title := "Curso A"
	rows := []*models.Sale{
		{ID: "s1", Price: decimal.NewFromInt(100), AsaasPaymentID: &payID, CourseTitleSnapshot: &title},
	}

	groups := GroupSales(rows)

	require.Len(t, groups, 1)
	require.Equal(t, "Curso A", groups[0].Label)
	require.Equal(t, 1, groups[0].CoursesCount)
}

func TestGroupSales_UnchargedSalesStayIndividual(t *testing.T) {
	rows := []*models.Sale{
		{ID: "s1", Price: decimal.NewFromInt(100)},
		{ID: "s2", Price: decimal.NewFromInt(200)},
	}

	groups := GroupSales(rows)

	require.Len(t, groups, 2)
	require.Equal(t, "s1", groups[0].MainSaleID)
	require.Equal(t, "s2", groups[1].MainSaleID)
	require.Empty(t, groups[0].AsaasPaymentID)
}

func TestGroupSales_PreservesFirstSeenOrder(t *testing.T) {
	payA := "pay_a"
	payB := "pay_b"
	rows := []*models.Sale{
		{ID: "s1", Price: decimal.NewFromInt(10), AsaasPaymentID: &payA},
		{ID: "s2", Price: decimal.NewFromInt(10), AsaasPaymentID: &payB},
		{ID: "s3", Price: decimal.NewFromInt(99), AsaasPaymentID: &payA},
	}

	groups := GroupSales(rows)

	require.Len(t, groups, 2)
	require.Equal(t, "pay_a", groups[0].AsaasPaymentID)
	require.Equal(t, "s3", groups[0].MainSaleID)
	require.Equal(t, "pay_b", groups[1].AsaasPaymentID)
}

func TestGroupSales_DeletedCourseFallsBackToPlaceholder(t *testing.T) {
	rows := []*models.Sale{{ID: "s1", Price: decimal.NewFromInt(10), AsaasPaymentID: strPtr("pay_1")}}

	groups := GroupSales(rows)

	require.Equal(t, "Curso removido", groups[0].Label)
}
