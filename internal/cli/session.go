package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"vortextau-chat/internal/chatstore"
	"vortextau-chat/internal/models"
	"vortextau-chat/internal/orchestrator"
)

// shareAPI is the part of the server client used by /share and /open.
type shareAPI interface {
	ShareChat(ctx context.Context, chat models.Chat) (string, error)
	GetSharedChat(ctx context.Context, shareID string) (models.Chat, error)
}

// session is the state of one interactive chat.
type session struct {
	out    io.Writer
	chats  *chatstore.Store
	orch   *orchestrator.Orchestrator
	api    shareAPI
	render func(string) string
}

func newSession(out io.Writer, chats *chatstore.Store, orch *orchestrator.Orchestrator, api shareAPI) *session {
	return &session{
		out:    out,
		chats:  chats,
		orch:   orch,
		api:    api,
		render: newMarkdownRenderer(),
	}
}

// newMarkdownRenderer returns a glamour renderer, or identity if glamour
// cannot be initialised.
func newMarkdownRenderer() func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return out
	}
}

// streamPrinter writes the new tail of the accumulated answer on every update.
type streamPrinter struct {
	out     io.Writer
	printed int
}

func (p *streamPrinter) update(partial string) {
	if partial == "" {
		if p.printed > 0 {
			fmt.Fprintln(p.out)
		}
		p.printed = 0
		return
	}
	if len(partial) < p.printed {
		p.printed = 0
	}
	fmt.Fprint(p.out, partial[p.printed:])
	p.printed = len(partial)
}

// send runs one turn against the active chat.
func (s *session) send(ctx context.Context, text string) {
	active := ""
	if chat, ok := s.chats.Active(); ok {
		active = chat.ID
	}

	res, err := s.orch.HandleTurn(ctx, active, text)
	switch {
	case errors.Is(err, orchestrator.ErrValidation):
		fmt.Fprintln(s.out, warningStyle.Render(err.Error()))
	case res.Notice != "":
		fmt.Fprintln(s.out, errorStyle.Render(res.Notice))
	case err != nil:
		fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
	}
}

// handleSlash runs a slash command. It returns false when the session should end.
func (s *session) handleSlash(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil

	case "/help", "/?":
		s.printHelp()

	case "/new":
		chat := s.chats.Create()
		s.persist()
		fmt.Fprintln(s.out, infoStyle.Render("Started "+chat.Title+" ("+shortID(chat.ID)+")"))

	case "/list", "/ls":
		s.printList()

	case "/switch":
		chat, err := s.lookup(arg)
		if err != nil {
			return true, err
		}
		if err := s.chats.SetActive(chat.ID); err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, infoStyle.Render("Switched to "+chat.Title))

	case "/rename":
		if arg == "" {
			return true, errors.New("usage: /rename <title>")
		}
		chat, ok := s.chats.Active()
		if !ok {
			return true, errors.New("no active chat")
		}
		if err := s.chats.Rename(chat.ID, arg); err != nil {
			return true, err
		}
		s.persist()
		fmt.Fprintln(s.out, infoStyle.Render("Renamed to "+arg))

	case "/delete":
		chat, err := s.lookupOrActive(arg)
		if err != nil {
			return true, err
		}
		if err := s.chats.Delete(chat.ID); err != nil {
			return true, err
		}
		s.persist()
		fmt.Fprintln(s.out, infoStyle.Render("Deleted "+chat.Title))

	case "/history":
		chat, ok := s.chats.Active()
		if !ok {
			return true, errors.New("no active chat")
		}
		fmt.Fprint(s.out, s.render(transcript(chat)))

	case "/share":
		chat, ok := s.chats.Active()
		if !ok {
			return true, errors.New("no active chat")
		}
		id, err := s.api.ShareChat(ctx, chat)
		if err != nil {
			return true, fmt.Errorf("sharing chat: %w", err)
		}
		fmt.Fprintln(s.out, activeStyle.Render("Share id: "+id))
		fmt.Fprintln(s.out, infoStyle.Render("Open it with: vortex open "+id))

	case "/open":
		if arg == "" {
			return true, errors.New("usage: /open <share id>")
		}
		shared, err := s.api.GetSharedChat(ctx, arg)
		if err != nil {
			return true, fmt.Errorf("opening shared chat: %w", err)
		}
		chat, added := s.chats.Import(shared)
		s.persist()
		if added {
			fmt.Fprintln(s.out, infoStyle.Render("Imported "+chat.Title))
		} else {
			fmt.Fprintln(s.out, infoStyle.Render("Already have "+chat.Title+", switched to it"))
		}

	case "/model":
		if arg == "" {
			fmt.Fprintln(s.out, infoStyle.Render("Model: "+s.orch.Model()))
			break
		}
		s.orch.SetModel(arg)
		fmt.Fprintln(s.out, infoStyle.Render("Model set to "+arg))

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return true, nil
}

func (s *session) persist() {
	if err := s.chats.PersistAll(); err != nil {
		fmt.Fprintln(s.out, warningStyle.Render("Could not save chats: "+err.Error()))
	}
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, infoStyle.Render(`Commands:
  /new               start a new chat
  /list              list chats
  /switch <n|id>     switch to a chat by list number or id prefix
  /rename <title>    rename the active chat
  /delete [n|id]     delete a chat (default: active)
  /history           show the active chat
  /share             share the active chat
  /open <share id>   import a shared chat
  /model [name]      show or change the model
  /quit              exit`))
}

func (s *session) printList() {
	chats := s.chats.Chats()
	if len(chats) == 0 {
		fmt.Fprintln(s.out, infoStyle.Render("No chats yet. Type a message to start one."))
		return
	}
	active, _ := s.chats.Active()
	for i, c := range chats {
		line := fmt.Sprintf("%2d. %s  %s  (%d messages)", i+1, shortID(c.ID), c.Title, len(c.Messages))
		if c.ID == active.ID {
			fmt.Fprintln(s.out, activeStyle.Render("* "+line))
			continue
		}
		fmt.Fprintln(s.out, "  "+line)
	}
}

// lookup resolves a 1-based list index or an id prefix.
func (s *session) lookup(ref string) (models.Chat, error) {
	if ref == "" {
		return models.Chat{}, errors.New("chat number or id required")
	}
	chats := s.chats.Chats()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(chats) {
			return models.Chat{}, fmt.Errorf("no chat number %d", n)
		}
		return chats[n-1], nil
	}

	var match []models.Chat
	for _, c := range chats {
		if strings.HasPrefix(c.ID, ref) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return models.Chat{}, chatstore.ErrChatNotFound
	case 1:
		return match[0], nil
	default:
		return models.Chat{}, fmt.Errorf("id prefix %q is ambiguous", ref)
	}
}

func (s *session) lookupOrActive(ref string) (models.Chat, error) {
	if ref != "" {
		return s.lookup(ref)
	}
	chat, ok := s.chats.Active()
	if !ok {
		return models.Chat{}, errors.New("no active chat")
	}
	return chat, nil
}

// transcript renders a chat as markdown.
func transcript(chat models.Chat) string {
	var b strings.Builder
	b.WriteString("# " + chat.Title + "\n\n")
	for _, m := range chat.Messages {
		switch m.Role {
		case models.RoleUser:
			b.WriteString("**You:** ")
		case models.RoleAssistant:
			b.WriteString("**Assistant:** ")
		default:
			b.WriteString("**" + string(m.Role) + ":** ")
		}
		b.WriteString(m.Content + "\n\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
