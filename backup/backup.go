// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package backup periodically exports the forum's content to S3 as a single
// JSON document. Backups are best-effort: a failed run is logged and the
// loop keeps going.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

var backupFreq = 12 * time.Hour

// since we backup twice a day, that should be ~32 days of backups
const MaxBackupsToKeep = 64

// s3API is the slice of the S3 client the backup loop uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config describes where backups go.
type Config struct {
	Bucket string
	Prefix string
}

// Backuper exports store content to S3.
type Backuper struct {
	s3     s3API
	store  store.Store
	config Config
	log    *logrus.Logger
}

// New creates a Backuper.
func New(client *s3.Client, st store.Store, config Config, log *logrus.Logger) *Backuper {
	if !strings.HasSuffix(config.Prefix, "/") {
		config.Prefix += "/"
	}
	return &Backuper{s3: client, store: st, config: config, log: log}
}

// snapshot is the exported document. Credentials never leave the store:
// users are exported without salts and password hashes, consumers and
// sessions not at all.
type snapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Boards  []forum.Board  `json:"boards"`
	Threads []forum.Thread `json:"threads"`
	Posts   []exportedPost `json:"posts"`
	Users   []exportedUser `json:"users"`
}

type exportedUser struct {
	ID       string    `json:"id"`
	Handle   string    `json:"handle"`
	Email    string    `json:"email"`
	JoinDate time.Time `json:"join_date"`
}

type exportedPost struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	UserHandle string    `json:"user_handle"`
	BodyHTML   string    `json:"body_html"`
	CreatedAt  time.Time `json:"created_at"`
}

func (b *Backuper) export(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{TakenAt: time.Now().UTC()}

	boards, err := b.store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	snap.Boards = boards

	threads, err := b.store.ListThreads(ctx, "")
	if err != nil {
		return nil, err
	}
	snap.Threads = threads

	for _, t := range threads {
		posts, err := b.store.ListPostsByThread(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			snap.Posts = append(snap.Posts, exportedPost{
				ID:         p.ID,
				ThreadID:   p.ThreadID,
				UserHandle: p.UserHandle,
				BodyHTML:   p.BodyHTML,
				CreatedAt:  p.CreatedAt,
			})
		}
	}

	// handles in posts are denormalized; fetch each distinct user once
	seen := map[string]bool{}
	for _, p := range snap.Posts {
		if p.UserHandle == "" || seen[p.UserHandle] {
			continue
		}
		seen[p.UserHandle] = true
		u, err := b.store.FindUserByHandle(ctx, p.UserHandle)
		if err != nil {
			continue
		}
		snap.Users = append(snap.Users, exportedUser{
			ID:       u.ID,
			Handle:   u.Handle,
			Email:    u.Email,
			JoinDate: u.JoinDate,
		})
	}
	return snap, nil
}

func (b *Backuper) backupKey(now time.Time) string {
	return b.config.Prefix + "forerun-" + now.Format("2006-01-02_15-04-05") + ".json"
}

// DoBackup takes one snapshot, uploads it and prunes old backups.
func (b *Backuper) DoBackup(ctx context.Context) error {
	startTime := time.Now()

	snap, err := b.export(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	key := b.backupKey(startTime.UTC())
	_, err = b.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return err
	}

	b.deleteOldBackups(ctx, MaxBackupsToKeep)

	b.log.Infof("s3 backup to %q took %.2f secs", key, time.Since(startTime).Seconds())
	return nil
}

func (b *Backuper) deleteOldBackups(ctx context.Context, maxToKeep int) {
	var keys []string
	var token *string
	for {
		out, err := b.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.config.Bucket),
			Prefix:            aws.String(b.config.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			b.log.Errorf("deleteOldBackups(): list failed with %s", err)
			return
		}
		for _, obj := range out.Contents {
			if obj.Key != nil && isBackupKey(*obj.Key) {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	toDelete := len(keys) - maxToKeep
	if toDelete <= 0 {
		return
	}
	// timestamped names sort oldest first
	sort.Strings(keys)
	for i := 0; i < toDelete; i++ {
		key := keys[i]
		_, err := b.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.config.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			b.log.Infof("deleteOldBackups(): failed to delete %s, error: %s", key, err)
		} else {
			b.log.Infof("deleteOldBackups(): deleted %s", key)
		}
	}
}

// backup keys look like prefix/forerun-2026-01-02_15-04-05.json
func isBackupKey(key string) bool {
	i := strings.LastIndex(key, "/")
	name := key[i+1:]
	return strings.HasPrefix(name, "forerun-") && strings.HasSuffix(name, ".json")
}

// Loop backs up every backupFreq until ctx is done.
func (b *Backuper) Loop(ctx context.Context) {
	for {
		if err := b.DoBackup(ctx); err != nil {
			b.log.Errorf("backup failed: %s", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backupFreq):
		}
	}
}
