package loadorder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/loadorder"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/testfixtures/apischema"
)

func TestCache(t *testing.T) {
	cache, err := loadorder.NewCache(loadorder.WithMaxCacheSize(8))
	require.NoError(t, err)
	defer cache.Close()

	s := apischema.MustLoad()

	first, err := cache.LoadOrder(s, nil, nil)
	require.NoError(t, err)
	second, err := cache.LoadOrder(s, nil, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)

	second[0].Order = 100
	second[0].Operations[0] = loadorder.Update
	third, err := cache.LoadOrder(s, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, third[0].Order)
	require.Equal(t, []loadorder.Operation{loadorder.Create, loadorder.Update}, third[0].Operations)

	deferred, err := cache.LoadOrder(s, nil, []loadorder.OrderTransformer{
		loadorder.NewDeferUpdateTransformer("/ed-fi/schools", "/ed-fi/studentSectionAssociations"),
	})
	require.NoError(t, err)
	require.Len(t, deferred, len(first)+1)
}

func TestCacheReportsErrors(t *testing.T) {
	cache, err := loadorder.NewCache()
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.LoadOrder(apischema.MustLoad(), []loadorder.GraphTransformer{
		loadorder.NewPrecedenceTransformer(edfiRef("Section"), edfiRef("School")),
	}, nil)
	var cycleErr *loadorder.CycleError
	require.ErrorAs(t, err, &cycleErr)
}
