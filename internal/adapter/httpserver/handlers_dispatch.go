package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/karmapulse/internal/domain"
	apperrors "github.com/pscheid92/karmapulse/internal/platform/errors"
)

type privmsgRequest struct {
	Network string `json:"network"`
	Sender  string `json:"sender"`
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type commandRequest struct {
	Network string   `json:"network"`
	Sender  string   `json:"sender"`
	Channel string   `json:"channel"`
	Raw     string   `json:"raw"`
	Args    []string `json:"args"`
}

type dispatchResponse struct {
	Replies []domain.Reply `json:"replies"`
}

func (s *Server) registerDispatchRoutes() {
	g := s.echo.Group("/dispatch",
		dispatchAuthMiddleware(s.config.DispatchToken),
		newRateLimiter(s.config.DispatchRateLimit, s.config.DispatchRateBurst),
	)
	g.POST("/privmsg", s.handlePrivmsg)
	g.POST("/commands/:command", s.handleCommand)
}

func (s *Server) handlePrivmsg(c echo.Context) error {
	var req privmsgRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireOrigin(req.Network, req.Sender); err != nil {
		return err
	}

	replies := s.karma.HandleMessage(c.Request().Context(), domain.Message{
		Network: req.Network,
		Sender:  req.Sender,
		Channel: req.Channel,
		Text:    req.Message,
	})
	return writeReplies(c, replies)
}

func (s *Server) handleCommand(c echo.Context) error {
	var req commandRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireOrigin(req.Network, req.Sender); err != nil {
		return err
	}

	name := strings.ToLower(c.Param("command"))
	cmd := domain.Command{
		Network: req.Network,
		Sender:  req.Sender,
		Channel: req.Channel,
		Name:    name,
		Raw:     req.Raw,
		Args:    req.Args,
	}
	// Gateways may send only one of the two forms.
	if cmd.Raw == "" && len(cmd.Args) > 0 {
		cmd.Raw = strings.Join(cmd.Args, " ")
	}
	if len(cmd.Args) == 0 {
		cmd.Args = strings.Fields(cmd.Raw)
	}

	replies, err := s.karma.HandleCommand(c.Request().Context(), cmd)
	if errors.Is(err, domain.ErrUnknownCommand) {
		return apperrors.NotFoundError(fmt.Sprintf("unknown command %q", name)).WithContext("command", name)
	}
	if err != nil {
		return apperrors.InternalError("failed to handle command", err).WithContext("command", name)
	}
	return writeReplies(c, replies)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return WrapHTTPError(httpErr)
		}
		return apperrors.ValidationError("invalid request body")
	}
	return nil
}

func requireOrigin(network, sender string) error {
	if strings.TrimSpace(network) == "" {
		return apperrors.ValidationError("network is required")
	}
	if strings.TrimSpace(sender) == "" {
		return apperrors.ValidationError("sender is required")
	}
	return nil
}

func writeReplies(c echo.Context, replies []domain.Reply) error {
	if replies == nil {
		replies = []domain.Reply{}
	}
	if err := c.JSON(http.StatusOK, dispatchResponse{Replies: replies}); err != nil {
		return fmt.Errorf("failed to write dispatch response: %w", err)
	}
	return nil
}
