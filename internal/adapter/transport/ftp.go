package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// ftpGetter fetches ftp:// URLs with anonymous login
type ftpGetter struct {
	dialTimeout time.Duration
}

func newFTPGetter(cfg Config) *ftpGetter {
	return &ftpGetter{dialTimeout: cfg.FTPDialTimeout}
}

func (g *ftpGetter) get(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = addr + ":21"
	}

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(g.dialTimeout),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ftp dial failed: %w", err)
	}

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, 0, fmt.Errorf("ftp login failed: %w", err)
	}

	remotePath := strings.TrimPrefix(u.Path, "/")

	size := int64(-1)
	if n, err := conn.FileSize(remotePath); err == nil {
		size = n
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		conn.Quit()
		return nil, 0, fmt.Errorf("ftp retrieve failed: %w", err)
	}

	return &ftpBody{resp: resp, conn: conn}, size, nil
}

// ftpBody ties the data stream's lifetime to the control connection:
// closing the body also quits the session.
type ftpBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Read(p []byte) (int, error) {
	return b.resp.Read(p)
}

func (b *ftpBody) Close() error {
	err := b.resp.Close()
	if qerr := b.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}
