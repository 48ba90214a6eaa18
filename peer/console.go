package peer

import (
	"bufio"
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type command struct {
	key         string
	channel     string
	description string
}

var commands = []command{
	{key: "s", channel: "stream", description: "Send through the relay to every stream peer"},
	{key: "u", channel: "datagram", description: "Send through the relay to every datagram peer"},
	{key: "m", channel: "multicast", description: "Send directly to the multicast group"},
	{key: "h", channel: "", description: "Show this help"},
	{key: "q", channel: "", description: "Quit"},
}

// Console drives a Sender from line-oriented input.
type Console struct {
	log     *slog.Logger
	sender  contract.Sender
	in      io.Reader
	printer *Printer
}

func NewConsole(log *slog.Logger, sender contract.Sender, in io.Reader, printer *Printer) *Console {
	return &Console{log: log, sender: sender, in: in, printer: printer}
}

// Run asks for a name, says hello, then serves commands until q, end of input or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	go c.scan(ctx, lines)

	if err := c.hello(ctx, lines); err != nil {
		return ignoreEnd(err)
	}
	c.help()

	for {
		line, err := next(ctx, lines)
		if err != nil {
			return ignoreEnd(err)
		}
		key := strings.TrimSpace(line)
		switch key {
		case "":
			continue
		case "q":
			return nil
		case "h":
			c.help()
			continue
		}

		send, err := c.senderFor(key)
		if err != nil {
			c.log.Debug("Command rejected", "command", key, "error", err)
			c.printer.Println(errorStyle, "Unknown command, h for help")
			continue
		}
		c.printer.Println(infoStyle, "Enter message (empty line to send):")
		message, err := ReadMessage(ctx, lines)
		if err != nil {
			return ignoreEnd(err)
		}
		if err := send(message); err != nil {
			c.log.Warn("Failed to send message", "command", key, "error", err)
			c.printer.Println(errorStyle, fmt.Sprintf("Error sending message: %v", err))
			continue
		}
		c.printer.Println(infoStyle, "Message sent")
	}
}

func (c *Console) hello(ctx context.Context, lines <-chan string) error {
	for {
		c.printer.Println(infoStyle, "Enter username:")
		name, err := next(ctx, lines)
		if err != nil {
			return err
		}
		err = c.sender.Hello(name)
		if err == nil {
			return nil
		}
		if !isIdentityError(err) {
			return err
		}
		c.printer.Println(errorStyle, err.Error())
	}
}

func (c *Console) senderFor(key string) (func(string) error, error) {
	switch key {
	case "s":
		return c.sender.SendStream, nil
	case "u":
		return c.sender.SendDatagram, nil
	case "m":
		return c.sender.SendGroup, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownCommand, key)
	}
}

func (c *Console) help() {
	rows := make([][]string, 0, len(commands))
	for _, cmd := range commands {
		rows = append(rows, []string{cmd.key, cmd.channel, cmd.description})
	}
	c.printer.Table([]string{"Command", "Channel", "Description"}, rows)
}

// scan feeds input lines until the end of input.
func (c *Console) scan(ctx context.Context, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("Failed to read input", "error", err)
	}
}

// ReadMessage collects lines up to the first empty one and joins them with "\n".
// Input ending in the middle of a message still returns what was read.
func ReadMessage(ctx context.Context, lines <-chan string) (string, error) {
	var message []string
	for {
		line, err := next(ctx, lines)
		if err == io.EOF && len(message) > 0 {
			return strings.Join(message, "\n"), nil
		}
		if err != nil {
			return "", err
		}
		if line == "" {
			return strings.Join(message, "\n"), nil
		}
		message = append(message, line)
	}
}

func next(ctx context.Context, lines <-chan string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func ignoreEnd(err error) error {
	if goerrors.Is(err, io.EOF) || goerrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func isIdentityError(err error) bool {
	return goerrors.Is(err, errors.ErrEmptyIdentity) || goerrors.Is(err, errors.ErrInvalidIdentity)
}
