package service

import (
	"context"
	"errors"
	"testing"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageFixture() (*ImageService, *fakeStore, *fakeBlobStore, *fakePublisher) {
	st := newFakeStore()
	blobs := newFakeBlobStore()
	pub := &fakePublisher{}
	return NewImageService(st, blobs, newFakeCache(), pub), st, blobs, pub
}

func countPrimary(t *testing.T, st *fakeStore, vehicleID int64) int {
	t.Helper()
	images, err := st.GetImagesByVehicle(context.Background(), vehicleID)
	require.NoError(t, err)
	n := 0
	for _, img := range images {
		if img.IsPrimary {
			n++
		}
	}
	return n
}

func TestUploadAssignsSortOrder(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	first, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "a.jpg", Content: []byte("a")}, true)
	require.NoError(t, err)
	second, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "b.jpg", Content: []byte("b")}, false)
	require.NoError(t, err)

	assert.Equal(t, 0, first.SortOrder)
	assert.Equal(t, 1, second.SortOrder)
	assert.True(t, first.IsPrimary)
	assert.False(t, second.IsPrimary)
}

func TestUploadPrimaryStaysUnique(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	_, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "a.jpg", Content: []byte("a")}, true)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, v.ID, UploadInput{FileName: "b.jpg", Content: []byte("b")}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, countPrimary(t, st, v.ID))
}

func TestUploadStorageFailureWritesNoCatalogRow(t *testing.T) {
	svc, st, blobs, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	blobs.failRemaining = 1
	_, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "a.jpg", Content: []byte("a")}, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageWrite))

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestUploadCatalogFailureCleansUpBlob(t *testing.T) {
	svc, st, blobs, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	st.createImageErr = errors.New("connection reset")
	_, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "a.jpg", Content: []byte("a")}, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCatalogWrite))

	assert.Equal(t, 0, blobs.count(), "orphan blob removed after catalog failure")
	assert.Len(t, blobs.deleted, 1)
}

func TestUploadMultipleAllSucceed(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	urls, err := svc.UploadMultiple(ctx, v.ID, []UploadInput{
		{FileName: "a.jpg", Content: []byte("a")},
		{FileName: "b.jpg", Content: []byte("b")},
		{FileName: "c.jpg", Content: []byte("c")},
	})
	require.NoError(t, err)
	assert.Len(t, urls, 3)
	assert.Equal(t, 1, countPrimary(t, st, v.ID), "only the first file is primary")
}

func TestUploadMultipleFallbackRecovers(t *testing.T) {
	svc, st, blobs, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	// One transient failure somewhere in the concurrent phase; the
	// sequential retry sees a healthy blob store.
	blobs.failRemaining = 1
	urls, err := svc.UploadMultiple(ctx, v.ID, []UploadInput{
		{FileName: "a.jpg", Content: []byte("a")},
		{FileName: "b.jpg", Content: []byte("b")},
		{FileName: "c.jpg", Content: []byte("c")},
	})
	require.NoError(t, err)
	assert.Len(t, urls, 3)

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, images, 3, "fallback must not leave duplicate rows behind")
	assert.Equal(t, 1, countPrimary(t, st, v.ID))
}

func TestUploadMultiplePartialFailure(t *testing.T) {
	svc, st, blobs, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	blobs.failContent = []byte("poison")
	urls, err := svc.UploadMultiple(ctx, v.ID, []UploadInput{
		{FileName: "a.jpg", Content: []byte("a")},
		{FileName: "b.jpg", Content: []byte("b")},
		{FileName: "bad.jpg", Content: []byte("poison")},
	})
	require.Error(t, err)

	var batchErr *apperrors.PartialBatchFailure
	require.True(t, errors.As(err, &batchErr))
	assert.Len(t, urls, 2)
	assert.Equal(t, urls, batchErr.Uploaded)
	require.Len(t, batchErr.Failed, 1)
	assert.Equal(t, "bad.jpg", batchErr.Failed[0].FileName)

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestSetPrimaryImageMovesFlag(t *testing.T) {
	svc, st, _, pub := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	old := st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "old.jpg", IsPrimary: true})
	next := st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "next.jpg"})

	require.NoError(t, svc.SetPrimaryImage(ctx, v.ID, next.ID))

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	for _, img := range images {
		if img.ID == next.ID {
			assert.True(t, img.IsPrimary)
		}
		if img.ID == old.ID {
			assert.False(t, img.IsPrimary)
		}
	}
	assert.Equal(t, 1, countPrimary(t, st, v.ID))
	require.Len(t, pub.primaryChanges, 1)
	assert.Equal(t, next.ID, pub.primaryChanges[0].ImageID)
}

func TestSetPrimaryImageRejectsForeignImage(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	mine := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})
	other := st.seedVehicle(models.Vehicle{Model: "Uno", Status: models.StatusAvailable})
	img := st.seedImage(models.VehicleImage{VehicleID: other.ID, ImageURL: "x.jpg"})

	err := svc.SetPrimaryImage(ctx, mine.ID, img.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeImageNotFound))
}

func TestDeleteImageRemovesBlobAndRow(t *testing.T) {
	svc, st, blobs, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	img, err := svc.Upload(ctx, v.ID, UploadInput{FileName: "a.jpg", Content: []byte("a")}, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(ctx, img.ID))
	assert.Equal(t, 0, blobs.count())

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestDeleteImageByURLMissingIsNoop(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	assert.NoError(t, svc.DeleteImageByURL(ctx, v.ID, "https://cdn.test/never-uploaded.jpg"))
}

func TestRemoveDuplicateImagesKeepsOldest(t *testing.T) {
	svc, st, _, _ := newImageFixture()
	ctx := context.Background()
	v := st.seedVehicle(models.Vehicle{Model: "Gol", Status: models.StatusAvailable})

	oldest := st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "dup.jpg"})
	st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "dup.jpg"})
	st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "dup.jpg"})
	st.seedImage(models.VehicleImage{VehicleID: v.ID, ImageURL: "solo.jpg"})

	removed, err := svc.RemoveDuplicateImages(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	images, err := st.GetImagesByVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, oldest.ID, images[0].ID, "the oldest duplicate survives")

	removed, err = svc.RemoveDuplicateImages(ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, removed, "second pass is a no-op")
}
