// Package backup copies roster files to and from S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kjk/roster/atomicfile"
	"github.com/kjk/roster/config"
	"github.com/kjk/roster/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// New connects to the storage and checks that the bucket exists
func New(ctx context.Context, c *config.BackupConfig) (*Client, error) {
	if c == nil || !c.Enabled() {
		return nil, errors.New("backup: must provide endpoint, bucket, access and secret")
	}
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("backup: bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		Bucket: c.Bucket,
		Prefix: c.Prefix,
	}, nil
}

// RemoteName returns name of the backup object for localPath taken at t.
// Uncompressed files get a .br suffix because they're uploaded compressed.
func RemoteName(prefix string, localPath string, t time.Time) string {
	name := filepath.Base(localPath)
	ext := ""
	if u.IsCompressedPath(name) {
		ext = filepath.Ext(name)
		name = strings.TrimSuffix(name, ext)
	} else {
		ext = ".br"
	}
	name = name + "." + t.UTC().Format("20060102-150405") + ext
	return path.Join(prefix, name)
}

// Push uploads the file at localPath and returns the remote name
func (c *Client) Push(ctx context.Context, localPath string) (string, error) {
	if !u.FileExists(localPath) {
		return "", fmt.Errorf("backup: file '%s' doesn't exist", localPath)
	}
	remote := RemoteName(c.Prefix, localPath, time.Now())
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	if u.IsCompressedPath(localPath) {
		_, err := c.Client.FPutObject(ctx, c.Bucket, remote, localPath, opts)
		return remote, err
	}
	d, err := u.BrCompressFile(localPath)
	if err != nil {
		return "", err
	}
	_, err = c.Client.PutObject(ctx, c.Bucket, remote, bytes.NewReader(d), int64(len(d)), opts)
	return remote, err
}

// List returns names of backups, oldest first
func (c *Client) List(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    c.Prefix,
		Recursive: true,
	}
	var res []string
	for obj := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		res = append(res, obj.Key)
	}
	// timestamp in the name sorts chronologically
	slices.Sort(res)
	return res, nil
}

// Latest returns name of the most recent backup
func (c *Client) Latest(ctx context.Context) (string, error) {
	names, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("backup: no backups under '%s'", c.Prefix)
	}
	return names[len(names)-1], nil
}

// Pull downloads remote backup and atomically replaces dstPath with it.
// The content is decompressed according to the extension of remote and
// compressed again according to the extension of dstPath.
func (c *Client) Pull(ctx context.Context, remote string, dstPath string) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remote, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()
	return restore(obj, remote, dstPath)
}

// restore writes backup content read from r to dstPath. dstPath is only
// replaced if the whole content was read and decoded.
func restore(r io.Reader, remote string, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	if err = u.Recode(f, dstPath, r, remote); err != nil {
		return fmt.Errorf("backup: restore '%s': %w", remote, err)
	}
	return f.Close()
}

// Remove deletes a backup
func (c *Client) Remove(ctx context.Context, remote string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, remote, minio.RemoveObjectOptions{})
}
