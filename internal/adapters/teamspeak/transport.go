package teamspeak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// DialFunc opens the byte stream a query connection runs over.
type DialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

func RawDialer(addr string, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", addr, err)
		}
		return conn, nil
	}
}

// SSHDialer authenticates with the query account during the SSH handshake, so no
// login command is sent afterwards.
func SSHDialer(addr, username, password string, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		netConn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", addr, err)
		}

		cfg := &ssh.ClientConfig{
			User:            username,
			Auth:            []ssh.AuthMethod{ssh.Password(password)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- query hosts use self-generated keys
			Timeout:         timeout,
		}

		if deadline, ok := ctx.Deadline(); ok {
			_ = netConn.SetDeadline(deadline)
		}
		sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
		if err != nil {
			_ = netConn.Close()
			return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
		}
		_ = netConn.SetDeadline(time.Time{})
		client := ssh.NewClient(sshConn, chans, reqs)

		stream, err := openShell(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return stream, nil
	}
}

type sshStream struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func openShell(client *ssh.Client) (*sshStream, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening ssh session: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh stdout: %w", err)
	}
	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("starting ssh shell: %w", err)
	}
	return &sshStream{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

func (s *sshStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *sshStream) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *sshStream) Close() error {
	err := s.session.Close()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return errors.Join(err, s.client.Close())
}
