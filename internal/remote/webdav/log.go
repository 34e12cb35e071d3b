package webdav

import "log"

func logf(format string, args ...any) {
	log.Printf("WebDAV: "+format, args...)
}
