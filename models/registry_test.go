package models

import (
	"testing"

	"github.com/nvr-ai/go-superpoint/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameSuperPoint, Width: 64, Height: 48})
	require.NoError(t, err)
	assert.Equal(t, model.ModelNameSuperPoint, m.Options().Name)
	assert.Equal(t, []int64{1, 1, 48, 64}, m.Options().InputShape)

	m, err = NewModel(model.NewModelArgs{})
	require.NoError(t, err, "an empty name selects SuperPoint")
	assert.Equal(t, model.ModelNameSuperPoint, m.Options().Name)

	_, err = NewModel(model.NewModelArgs{Name: "yolov4"})
	assert.ErrorContains(t, err, "unsupported model name")
}
