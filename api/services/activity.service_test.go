package services

import (
	"context"
	"testing"
	"time"

	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityCreateDerivesLevel(t *testing.T) {
	f := newFixture(t)

	root := f.activity(t, "Food", nil)
	child := f.activity(t, "Meat", root)
	grandchild := f.activity(t, "Sausages", child)

	assert.Equal(t, 0, root.Level)
	assert.Nil(t, root.ParentID)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, root.ID, *child.ParentID)
	assert.Equal(t, 2, grandchild.Level)

	stored, err := f.activities.Get(context.Background(), grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, child.ID, *stored.ParentID)

	assert.Equal(t, []string{
		"directory.activities.created",
		"directory.activities.created",
		"directory.activities.created",
	}, f.publisher.subjects())
}

func TestActivityCreateRejectsChildOfMaxLevel(t *testing.T) {
	f := newFixture(t)

	root := f.activity(t, "Food", nil)
	child := f.activity(t, "Meat", root)
	leaf := f.activity(t, "Sausages", child)

	_, err := f.activities.Create(context.Background(), &ontology.CreateActivityRequest{
		Name:     "Too deep",
		ParentID: &leaf.ID,
	})
	requireCode(t, err, shared.CodeValidation)
	assert.Contains(t, err.Error(), "cannot add child to level-2 node")
	assert.Equal(t, 3, f.count(t, "activities"))
}

func TestActivityCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  ontology.CreateActivityRequest
		code shared.ErrorCode
	}{
		{"empty name", ontology.CreateActivityRequest{Name: ""}, shared.CodeValidation},
		{"missing parent", ontology.CreateActivityRequest{Name: "Orphan", ParentID: ptr(int64(999))}, shared.CodeNotFound},
		{"non-positive parent", ontology.CreateActivityRequest{Name: "Orphan", ParentID: ptr(int64(0))}, shared.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.activities.Create(context.Background(), &tt.req)
			requireCode(t, err, tt.code)
		})
	}
	assert.Equal(t, 0, f.count(t, "activities"))
	assert.Empty(t, f.publisher.subjects())
}

func TestActivityGetNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.activities.Get(context.Background(), 42)
	requireCode(t, err, shared.CodeNotFound)
}

func TestGetTreeForest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	food := f.activity(t, "Food", nil)
	cars := f.activity(t, "Cars", nil)
	meat := f.activity(t, "Meat", food)
	dairy := f.activity(t, "Dairy", food)
	trucks := f.activity(t, "Trucks", cars)
	f.activity(t, "Sausages", meat)

	tree, err := f.activities.GetTree(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, food.ID, tree[0].ID)
	assert.Equal(t, 0, tree[0].Level)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, meat.ID, tree[0].Children[0].ID)
	assert.Equal(t, dairy.ID, tree[0].Children[1].ID)
	assert.Equal(t, 1, tree[0].Children[0].Level)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, 2, tree[0].Children[0].Children[0].Level)
	assert.Empty(t, tree[0].Children[0].Children[0].Children)
	assert.NotNil(t, tree[0].Children[1].Children)

	assert.Equal(t, cars.ID, tree[1].ID)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, trucks.ID, tree[1].Children[0].ID)
}

func TestGetTreeEmpty(t *testing.T) {
	f := newFixture(t)

	tree, err := f.activities.GetTree(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestGetTreeFromRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	food := f.activity(t, "Food", nil)
	meat := f.activity(t, "Meat", food)
	sausages := f.activity(t, "Sausages", meat)

	tree, err := f.activities.GetTree(ctx, &meat.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, meat.ID, tree[0].ID)
	assert.Equal(t, 1, tree[0].Level)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, sausages.ID, tree[0].Children[0].ID)
	assert.Equal(t, 2, tree[0].Children[0].Level)

	_, err = f.activities.GetTree(ctx, ptr(int64(999)))
	requireCode(t, err, shared.CodeNotFound)
}

func TestGetTreeStopsAtMaxDepth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	food := f.activity(t, "Food", nil)
	meat := f.activity(t, "Meat", food)
	sausages := f.activity(t, "Sausages", meat)

	// A row the create path would never allow: a child under a level-2 node.
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := f.db.DB.Exec(
		`INSERT INTO activities (name, parent_id, level, created_at, updated_at) VALUES (?, ?, 2, ?, ?)`,
		"Smoked", sausages.ID, now, now,
	)
	require.NoError(t, err)

	tree, err := f.activities.GetTree(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	leaf := tree[0].Children[0].Children[0]
	assert.Equal(t, sausages.ID, leaf.ID)
	assert.Empty(t, leaf.Children)
}
