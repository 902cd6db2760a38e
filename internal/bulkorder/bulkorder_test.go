package bulkorder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
)

func TestTextToEntriesTokenizing(t *testing.T) {
	text := "CKK-FT26-101,12\r\n\nSMW-WS12-M\t4\nNPS SL02 6\nHNP-CP05\n  , 3 \n"
	got := TextToEntries(text)
	assert.Equal(t, []OrderEntry{
		{ItemCode: "CKK-FT26-101", Quantity: "12"},
		{ItemCode: "SMW-WS12-M", Quantity: "4"},
		{ItemCode: "NPS SL02", Quantity: "6"},
		{ItemCode: "HNP-CP05", Quantity: ""},
		{ItemCode: ",", Quantity: "3"},
	}, got)
}

func TestEntriesToTextSkipsBlankRows(t *testing.T) {
	entries := []OrderEntry{
		{ItemCode: " CKK-FT26-101 ", Quantity: " 12"},
		{ItemCode: "  ", Quantity: ""},
		{ItemCode: "EMB-MG03", Quantity: "2"},
	}
	assert.Equal(t, "CKK-FT26-101,12\nEMB-MG03,2", EntriesToText(entries))
	assert.Equal(t, "", EntriesToText(nil))
}

func TestBulkRoundTrip(t *testing.T) {
	cases := [][]OrderEntry{
		{{ItemCode: "CKK-FT26-101", Quantity: "12"}},
		{{ItemCode: "A", Quantity: "3"}, {ItemCode: "B-2", Quantity: "0.5"}, {ItemCode: "A", Quantity: "x"}},
	}
	for _, entries := range cases {
		assert.Equal(t, entries, TextToEntries(EntriesToText(entries)))
	}
}

func TestValidateEntries(t *testing.T) {
	entries := []OrderEntry{
		{ItemCode: "A", Quantity: "3"},
		{ItemCode: "", Quantity: ""},
		{ItemCode: "", Quantity: "2"},
		{ItemCode: "B", Quantity: ""},
		{ItemCode: "C", Quantity: "-1"},
		{ItemCode: "", Quantity: "abc"},
		{ItemCode: "D", Quantity: "Inf"},
		{ItemCode: "E", Quantity: "1.5"},
	}
	got := ValidateEntries(entries)
	assert.Equal(t, 2, got.ValidCount)
	assert.Equal(t, []EntryError{
		{Row: 2, Field: FieldItemCode, Message: MsgCodeRequired},
		{Row: 3, Field: FieldQuantity, Message: MsgQuantityRequired},
		{Row: 4, Field: FieldQuantity, Message: MsgQuantityPositive},
		{Row: 5, Field: FieldItemCode, Message: MsgCodeRequired},
		{Row: 5, Field: FieldQuantity, Message: MsgQuantityPositive},
		{Row: 6, Field: FieldQuantity, Message: MsgQuantityPositive},
	}, got.Errors)
}

func TestValidatePasteTextFailsFast(t *testing.T) {
	err := ValidatePasteText("A,5\nB,bad\nC,3")
	require.NotNil(t, err)
	assert.Equal(t, 2, err.Line)
	assert.Contains(t, err.Message, "Line 2")
	assert.NotContains(t, err.Message, "C")

	err = ValidatePasteText("A,5\n\nLONELY\nC,0")
	require.NotNil(t, err)
	assert.Equal(t, 3, err.Line)

	assert.Nil(t, ValidatePasteText("A,5\n\nB 7\n"))
	assert.Nil(t, ValidatePasteText(""))
}

func TestParseQuantity(t *testing.T) {
	q := ParseQuantity(" 2.5 ")
	require.True(t, q.Valid())
	assert.Equal(t, 2.5, q.Value)
	assert.Equal(t, " 2.5 ", q.Raw)

	assert.ErrorIs(t, ParseQuantity("").Err, ErrQuantityRequired)
	assert.ErrorIs(t, ParseQuantity("0").Err, ErrQuantityInvalid)
	assert.ErrorIs(t, ParseQuantity("NaN").Err, ErrQuantityInvalid)
}

func TestAggregateSumsByNormalizedCode(t *testing.T) {
	got := Aggregate([]OrderEntry{
		{ItemCode: "A", Quantity: "3"},
		{ItemCode: "B", Quantity: "1"},
		{ItemCode: " A ", Quantity: "5"},
		{ItemCode: "C", Quantity: "oops"},
	})
	assert.Equal(t, []Aggregated{{Code: "A", Quantity: 8}, {Code: "B", Quantity: 1}}, got)

	got = Aggregate([]OrderEntry{{ItemCode: "a", Quantity: "3"}, {ItemCode: "A", Quantity: "5"}})
	assert.Equal(t, []Aggregated{{Code: "a", Quantity: 8}}, got)
}

type recordingCart struct {
	batches [][]LineItem
	err     error
}

func (c *recordingCart) AddItems(_ context.Context, items []LineItem) error {
	if c.err != nil {
		return c.err
	}
	c.batches = append(c.batches, items)
	return nil
}

func testIndex() *lookup.Index {
	return lookup.Build([]catalog.Product{
		{ID: "p-a", Name: "Alpha", SKU: "A", Price: 4},
		{ID: "p-b", Name: "Beta", SKU: "B", Price: 10, Variants: []catalog.Variant{
			{ID: "v-b1", SKU: "B-1", UPC: "000111", Price: 12},
		}},
	})
}

func TestSubmitAggregatesIntoOneItem(t *testing.T) {
	cart := &recordingCart{}
	out, err := Submit(context.Background(), []OrderEntry{
		{ItemCode: "A", Quantity: "3"},
		{ItemCode: "A", Quantity: "5"},
	}, testIndex(), cart)
	require.NoError(t, err)

	require.Len(t, cart.batches, 1)
	require.Len(t, cart.batches[0], 1)
	assert.Equal(t, 8.0, cart.batches[0][0].Quantity)
	assert.Equal(t, "p-a", cart.batches[0][0].ProductID)
	assert.True(t, out.Submitted)
	assert.True(t, out.ClearInputs)
	assert.NotEmpty(t, out.BatchID)
}

func TestSubmitPartialSuccessKeepsInputs(t *testing.T) {
	cart := &recordingCart{}
	out, err := Submit(context.Background(), []OrderEntry{
		{ItemCode: "000111", Quantity: "2"},
		{ItemCode: "ZZZ", Quantity: "1"},
	}, testIndex(), cart)
	require.NoError(t, err)

	require.Len(t, cart.batches, 1)
	item := cart.batches[0][0]
	assert.Equal(t, "v-b1", item.VariantID)
	assert.Equal(t, "B-1", item.SKU)
	assert.Equal(t, 12.0, item.UnitPrice)
	assert.Equal(t, []string{"ZZZ"}, out.Resolution.NotFoundCodes)
	assert.True(t, out.Submitted)
	assert.False(t, out.ClearInputs)
}

func TestSubmitNothingResolved(t *testing.T) {
	cart := &recordingCart{}
	out, err := Submit(context.Background(), []OrderEntry{{ItemCode: "ZZZ", Quantity: "1"}}, nil, cart)
	require.NoError(t, err)
	assert.Empty(t, cart.batches)
	assert.False(t, out.ClearInputs)
	assert.Equal(t, []string{"ZZZ"}, out.Resolution.NotFoundCodes)
}

func TestSubmitBlockedByRowErrors(t *testing.T) {
	cart := &recordingCart{}
	out, err := Submit(context.Background(), []OrderEntry{
		{ItemCode: "A", Quantity: "1"},
		{ItemCode: "B", Quantity: "0"},
	}, testIndex(), cart)
	require.NoError(t, err)
	assert.Empty(t, cart.batches)
	assert.False(t, out.Submitted)
	assert.Len(t, out.Validation.Errors, 1)
}

func TestSubmitCartFailure(t *testing.T) {
	boom := errors.New("redis down")
	out, err := Submit(context.Background(), []OrderEntry{{ItemCode: "A", Quantity: "1"}}, testIndex(), &recordingCart{err: boom})
	require.ErrorIs(t, err, boom)
	assert.False(t, out.ClearInputs)
}
