// Package storage builds public download URLs for uploaded thumbnails.
package storage

import (
	"net/url"
	"strings"
)

const downloadBase = "https://firebasestorage.googleapis.com/v0/b/"

// ImageResolver turns stored image references into download URLs.
type ImageResolver struct {
	Bucket string
	Folder string
}

func NewImageResolver(bucket, folder string) *ImageResolver {
	return &ImageResolver{Bucket: bucket, Folder: strings.Trim(folder, "/")}
}

// Resolve accepts a full http(s) URL, a gs://bucket/object URL or a bare
// file name stored under Folder in Bucket.
func (r *ImageResolver) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "gs://"):
		bucket, object, _ := strings.Cut(strings.TrimPrefix(raw, "gs://"), "/")
		return downloadURL(bucket, object)
	default:
		object := raw
		if r.Folder != "" {
			object = r.Folder + "/" + raw
		}
		return downloadURL(r.Bucket, object)
	}
}

func downloadURL(bucket, object string) string {
	return downloadBase + bucket + "/o/" + escapeComponent(object) + "?alt=media"
}

// escapeComponent escapes every reserved character, including '/' and spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
