package stores

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/stores/aws"
	"github.com/webseed87/camera/stores/filesystem"
	"github.com/webseed87/camera/stores/memory"
	"github.com/webseed87/camera/stores/sqlite"
)

// GetStore selects the blob store backend from STORAGE_TYPE. Misconfiguration
// is fatal; it only happens at startup.
func GetStore(ctx context.Context) core.BlobStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.BlobStore
	var err error

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store, err = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "camera.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store, err = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		prefix := os.Getenv("S3_PREFIX")
		storageField["bucketName"] = bucketName
		storageField["prefix"] = prefix
		store, err = aws.NewStore(ctx, bucketName, prefix)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		logrus.WithFields(storageField).WithError(err).Fatal("Failed to open storage")
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
