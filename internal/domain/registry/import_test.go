package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImporter_Preview(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &Plot{PlotNumber: "7", OwnerFullName: "Иванов Иван Иванович"}))

	im := NewImporter(repo)

	t.Run("semicolon file with russian headers", func(t *testing.T) {
		data := []byte("\uFEFFУчасток;ФИО;Телефон\n12;Петров Пётр;+7 915 123-45-67\n;Безномера;\n12;Дубль;\n7;Иванов Иван Иванович;\n")
		preview, err := im.Preview(ctx, data)
		require.NoError(t, err)

		assert.Equal(t, 4, preview.TotalRows)
		assert.Equal(t, 2, preview.ValidRows)
		assert.Equal(t, 2, preview.ErrorRows)
		assert.Equal(t, 1, preview.Existing)

		assert.True(t, preview.Rows[0].OK)
		assert.Equal(t, "12", preview.Rows[0].PlotNumber)
		assert.False(t, preview.Rows[1].OK)
		assert.False(t, preview.Rows[2].OK) // in-file duplicate
		assert.True(t, preview.Rows[3].Exists)
	})

	t.Run("comma file with english headers", func(t *testing.T) {
		data := []byte("plotNumber,ownerName,phone\n001,Smirnova A.,89161234567\n")
		preview, err := im.Preview(ctx, data)
		require.NoError(t, err)
		require.Len(t, preview.Rows, 1)
		assert.Equal(t, "1", preview.Rows[0].PlotNumber) // leading zeros stripped
		assert.True(t, preview.Rows[0].OK)
	})
}

func TestImporter_Confirm(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	im := NewImporter(repo)

	faker := gofakeit.New(42)
	var b []byte
	b = append(b, []byte("участок;фио;телефон\n")...)
	for i := 1; i <= 20; i++ {
		b = append(b, []byte(fmt.Sprintf("%d;%s;%s\n", i, faker.Name(), faker.Phone()))...)
	}
	// duplicate of plot 5 inside the file
	b = append(b, []byte("5;Дубликат;\n")...)

	result, err := im.Confirm(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Created)
	assert.Equal(t, 1, result.Skipped)

	plots, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, plots, 20)

	// A second confirm of the same file creates nothing.
	again, err := im.Confirm(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 21, again.Skipped)
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, "12А", NormalizeNumber(" 012а "))
	assert.Equal(t, "7", NormalizeNumber("007"))
	assert.Equal(t, "0", NormalizeNumber("0"))
}
