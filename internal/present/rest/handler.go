package rest

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/present/rest/middleware"
	"github.com/tentd/tentd/internal/present/rest/presenter"
	"github.com/tentd/tentd/internal/service"
	"github.com/tentd/tentd/internal/usecase"
)

type Handler struct {
	entity        *usecase.EntityUsecase
	profile       *usecase.ProfileUsecase
	follow        *usecase.FollowUsecase
	post          *usecase.PostUsecase
	group         *usecase.GroupUsecase
	notifications *usecase.NotificationUsecase
	signal        *service.SignalService
	singleUser    string
}

func NewHandler(
	entity *usecase.EntityUsecase,
	profile *usecase.ProfileUsecase,
	follow *usecase.FollowUsecase,
	post *usecase.PostUsecase,
	group *usecase.GroupUsecase,
	notifications *usecase.NotificationUsecase,
	signal *service.SignalService,
	singleUser string,
) *Handler {
	return &Handler{
		entity:        entity,
		profile:       profile,
		follow:        follow,
		post:          post,
		group:         group,
		notifications: notifications,
		signal:        signal,
		singleUser:    singleUser,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, entityMW *middleware.EntityMiddleware, authMW *middleware.AuthMiddleware) {
	e.GET("/", h.handleInfo)
	e.GET("/export", h.handleExport)

	prefix := "/:entity"
	if h.singleUser != "" {
		prefix = ""
	}
	g := e.Group(prefix, entityMW.Resolve)

	g.HEAD("", h.handleEntityHead)
	if h.singleUser == "" {
		g.GET("", h.handleEntityHead)
	}

	g.GET("/profile", h.handleGetProfileDocument)
	g.GET("/profile/:schema", h.handleGetProfile)
	g.PUT("/profile/:schema", h.handlePutProfile)
	g.DELETE("/profile/:schema", h.handleDeleteProfile)

	g.GET("/followers", h.handleListFollowers)
	g.POST("/followers", h.handleCreateFollower)
	g.GET("/followers/:id", h.handleGetFollower, authMW.RequireMAC)
	g.PUT("/followers/:id", h.handleUpdateFollower, authMW.RequireMAC)
	g.DELETE("/followers/:id", h.handleDeleteFollower, authMW.RequireMAC)

	g.GET("/followings", h.handleListFollowings)
	g.POST("/followings", h.handleCreateFollowing)
	g.GET("/followings/:id", h.handleGetFollowing)
	g.DELETE("/followings/:id", h.handleDeleteFollowing)

	g.GET("/posts", h.handleListPosts)
	g.POST("/posts", h.handleCreatePost)
	g.GET("/posts/:id", h.handleGetPost)
	g.PUT("/posts/:id", h.handleNewVersion)
	g.DELETE("/posts/:id", h.handleDeletePost)
	g.GET("/posts/:id/versions", h.handleListVersions)
	g.GET("/posts/:id/mentions", h.handleListMentions)

	g.GET("/notification", h.handleNotificationPing)
	g.POST("/notification", h.handleInboundNotification)
	g.GET("/notifications", h.handleListNotifications)

	g.GET("/groups", h.handleListGroups)
	g.POST("/groups", h.handleCreateGroup)
	g.GET("/groups/:name", h.handleGetGroup)
	g.PUT("/groups/:name", h.handleRenameGroup)
	g.DELETE("/groups/:name", h.handleDeleteGroup)

	g.GET("/events", h.handleEvents)
}

func entityFrom(c echo.Context) domain.Entity {
	return c.Get(domain.EntityCtxKey).(domain.Entity)
}

// parseID distinguishes a malformed identifier from an absent resource.
func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, domain.BadRequestError{Reason: "invalid id"}
	}
	return id, nil
}

func (h *Handler) handleInfo(c echo.Context) error {
	return presenter.OK(c, map[string]any{
		"server":       "tentd",
		"tent_version": tent.Version,
	})
}

// handleExport dumps every hosted entity with its profile document.
func (h *Handler) handleExport(c echo.Context) error {
	ctx := c.Request().Context()

	entities, err := h.entity.List(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}

	dump := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		document, err := h.profile.GetDocument(ctx, entity)
		if err != nil {
			return presenter.Error(c, err)
		}
		dump = append(dump, map[string]any{
			"name":     entity.Name,
			"identity": h.entity.IdentityFor(entity.Name),
			"profiles": document,
		})
	}

	return presenter.OK(c, map[string]any{"entities": dump})
}

// handleEntityHead serves the discovery Link header pointing at the
// entity's profile document.
func (h *Handler) handleEntityHead(c echo.Context) error {
	entity := entityFrom(c)
	c.Response().Header().Set("Link", tent.FormatProfileLink(h.entity.ProfileURLFor(entity.Name)))
	return c.NoContent(http.StatusOK)
}

func (h *Handler) handleGetProfileDocument(c echo.Context) error {
	entity := entityFrom(c)
	document, err := h.profile.GetDocument(c.Request().Context(), entity)
	if err != nil {
		return presenter.Error(c, err)
	}
	c.Response().Header().Set("Link", tent.FormatProfileLink(h.entity.ProfileURLFor(entity.Name)))
	return presenter.Tent(c, document)
}

func profileSchema(c echo.Context) (string, error) {
	schema, err := url.PathUnescape(c.Param("schema"))
	if err != nil || schema == "" {
		return "", domain.BadRequestError{Reason: "invalid profile type"}
	}
	return schema, nil
}

func (h *Handler) handleGetProfile(c echo.Context) error {
	schema, err := profileSchema(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	profile, err := h.profile.Get(c.Request().Context(), entityFrom(c), schema)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, profile)
}

func (h *Handler) handlePutProfile(c echo.Context) error {
	schema, err := profileSchema(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var content map[string]any
	if err := c.Bind(&content); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	profile, err := h.profile.Put(c.Request().Context(), entityFrom(c), schema, content)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, profile)
}

func (h *Handler) handleDeleteProfile(c echo.Context) error {
	schema, err := profileSchema(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	if err := h.profile.Delete(c.Request().Context(), entityFrom(c), schema); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

// followerCreated carries the one-time MAC credentials back to the new
// follower. They are never serialized again after this response.
type followerCreated struct {
	domain.Follower
	MacKeyID     string `json:"mac_key_id"`
	MacKey       string `json:"mac_key"`
	MacAlgorithm string `json:"mac_algorithm"`
}

func (h *Handler) handleCreateFollower(c echo.Context) error {
	var req usecase.FollowRequest
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	follower, err := h.follow.StartFollowing(c.Request().Context(), entityFrom(c), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, followerCreated{
		Follower:     follower,
		MacKeyID:     follower.KeyPair.MacID,
		MacKey:       follower.KeyPair.MacKey,
		MacAlgorithm: follower.KeyPair.MacAlgorithm,
	})
}

func (h *Handler) handleListFollowers(c echo.Context) error {
	followers, err := h.follow.ListFollowers(c.Request().Context(), entityFrom(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	if followers == nil {
		followers = []domain.Follower{}
	}
	return presenter.Tent(c, followers)
}

func (h *Handler) handleGetFollower(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	follower, err := h.follow.GetFollower(c.Request().Context(), entityFrom(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, follower)
}

func (h *Handler) handleUpdateFollower(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var update usecase.FollowerUpdate
	if err := c.Bind(&update); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	follower, err := h.follow.UpdateFollower(c.Request().Context(), entityFrom(c), id, update)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, follower)
}

func (h *Handler) handleDeleteFollower(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	if err := h.follow.StopFollowing(c.Request().Context(), entityFrom(c), id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleCreateFollowing(c echo.Context) error {
	var req struct {
		Entity string `json:"entity"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	following, err := h.follow.Follow(c.Request().Context(), entityFrom(c), req.Entity)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, following)
}

func (h *Handler) handleListFollowings(c echo.Context) error {
	followings, err := h.follow.ListFollowings(c.Request().Context(), entityFrom(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	if followings == nil {
		followings = []domain.Following{}
	}
	return presenter.Tent(c, followings)
}

func (h *Handler) handleGetFollowing(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	following, err := h.follow.GetFollowing(c.Request().Context(), entityFrom(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, following)
}

func (h *Handler) handleDeleteFollowing(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	if err := h.follow.Unfollow(c.Request().Context(), entityFrom(c), id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleCreatePost(c echo.Context) error {
	var req usecase.PostRequest
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	post, err := h.post.Create(c.Request().Context(), entityFrom(c), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, post)
}

func (h *Handler) handleListPosts(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return presenter.Error(c, domain.BadRequestError{Reason: "invalid limit"})
		}
		limit = parsed
	}
	posts, err := h.post.List(c.Request().Context(), entityFrom(c), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, posts)
}

func (h *Handler) handleGetPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	post, err := h.post.Get(c.Request().Context(), entityFrom(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, post)
}

func (h *Handler) handleNewVersion(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var req usecase.VersionRequest
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	post, err := h.post.NewVersion(c.Request().Context(), entityFrom(c), id, req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, post)
}

func (h *Handler) handleDeletePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var version *int
	if raw := c.QueryParam("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return presenter.Error(c, domain.BadRequestError{Reason: "invalid version"})
		}
		version = &parsed
	}
	if err := h.post.Delete(c.Request().Context(), entityFrom(c), id, version); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleListVersions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	versions, err := h.post.Versions(c.Request().Context(), entityFrom(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, versions)
}

func (h *Handler) handleListMentions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	mentions, err := h.post.Mentions(c.Request().Context(), entityFrom(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, mentions)
}

// handleNotificationPing answers the follow handshake probe.
func (h *Handler) handleNotificationPing(c echo.Context) error {
	return presenter.NoContent(c)
}

func (h *Handler) handleInboundNotification(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	postID := ""
	if raw, ok := body["id"]; ok {
		postID = stringify(raw)
	}
	if _, err := h.notifications.Record(c.Request().Context(), entityFrom(c), postID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleListNotifications(c echo.Context) error {
	notifications, err := h.notifications.List(c.Request().Context(), entityFrom(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return presenter.Tent(c, notifications)
}

func (h *Handler) handleCreateGroup(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	group, err := h.group.Create(c.Request().Context(), entityFrom(c), req.Name)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, group)
}

func (h *Handler) handleListGroups(c echo.Context) error {
	groups, err := h.group.List(c.Request().Context(), entityFrom(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	return presenter.Tent(c, groups)
}

func (h *Handler) handleGetGroup(c echo.Context) error {
	group, err := h.group.Get(c.Request().Context(), entityFrom(c), c.Param("name"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, group)
}

func (h *Handler) handleRenameGroup(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.Error(c, domain.BadRequestError{Reason: "malformed body"})
	}
	group, err := h.group.Rename(c.Request().Context(), entityFrom(c), c.Param("name"), req.Name)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Tent(c, group)
}

func (h *Handler) handleDeleteGroup(c echo.Context) error {
	if err := h.group.Delete(c.Request().Context(), entityFrom(c), c.Param("name")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents streams the entity's freshly published posts over a
// websocket. Requires the redis-backed signal service.
func (h *Handler) handleEvents(c echo.Context) error {
	if h.signal == nil {
		return presenter.Error(c, domain.NotFoundError{Resource: "event stream"})
	}
	entity := entityFrom(c)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()
	posts, cancel := h.signal.Subscribe(ctx, entity.Name)
	defer cancel()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case payload, ok := <-posts:
			if !ok {
				return nil
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
