package devstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/jobs"
	"github.com/atelierhq/assetgate/src/logging"
	"github.com/spf13/cobra"
)

// An S3-shaped server backed by the local filesystem, for development only.
// It speaks just enough of the protocol for the aws-sdk client: put and
// create-bucket via PUT, get via GET, delete via DELETE. Keys may contain
// slashes; they are flattened to a single filename per object.

var Command = &cobra.Command{
	Use:   "devstore [storage folder]",
	Short: "Run a local object store that keeps bytes in the filesystem",
	Run: func(cmd *cobra.Command, args []string) {
		folder := config.Config.DevStore.Folder
		if len(args) > 0 {
			folder = args[0]
		}
		job := StartServer(config.Config.DevStore.Addr, folder)
		<-job.Finished()
	},
}

func StartServer(addr string, folder string) *jobs.Job {
	job := jobs.New("devstore")

	if err := os.MkdirAll(folder, fs.ModePerm); err != nil {
		panic(err)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: http.HandlerFunc(makeHandler(folder)),
	}

	go func() {
		<-job.Canceled()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()
	go func() {
		defer job.Finish()
		job.Logger.Info().Str("addr", addr).Str("folder", folder).Msg("devstore running")
		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			job.Logger.Error().Err(err).Msg("devstore server failed")
		}
	}()

	return job
}

func makeHandler(folder string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket, key := bucketKey(r)
		logging.Debug().
			Str("method", r.Method).
			Str("bucket", bucket).
			Str("key", key).
			Msg("devstore request")

		switch r.Method {
		case http.MethodPut:
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Location", fmt.Sprintf("/%s", bucket))
			if err := os.MkdirAll(fmt.Sprintf("%s/%s", folder, bucket), fs.ModePerm); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if key != "" {
				if err := os.WriteFile(objectFile(folder, bucket, key), bodyBytes, fs.ModePerm); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
		case http.MethodGet:
			fileBytes, err := os.ReadFile(objectFile(folder, bucket, key))
			if errors.Is(err, fs.ErrNotExist) {
				writeS3Error(w, http.StatusNotFound, "NoSuchKey", key)
				return
			} else if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Write(fileBytes)
		case http.MethodDelete:
			// S3 deletes are idempotent, so a missing object is still a
			// success.
			err := os.Remove(objectFile(folder, bucket, key))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeS3Error(w, http.StatusNotImplemented, "NotImplemented", key)
		}
	}
}

func objectFile(folder string, bucket string, key string) string {
	return fmt.Sprintf("%s/%s/%s", folder, bucket, strings.ReplaceAll(key, "/", "~"))
}

func writeS3Error(w http.ResponseWriter, status int, code string, key string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Key>%s</Key></Error>`, code, key)
}

func bucketKey(r *http.Request) (string, string) {
	slashIdx := strings.IndexByte(r.URL.Path[1:], '/')
	if slashIdx == -1 {
		return r.URL.Path[1:], ""
	}
	return r.URL.Path[1 : 1+slashIdx], r.URL.Path[2+slashIdx:]
}
