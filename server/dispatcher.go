package server

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/billboardcp/billboard-server/auth"
	"github.com/billboardcp/billboard-server/auth/sessions"
	"github.com/billboardcp/billboard-server/internal/metrics"
	"github.com/billboardcp/billboard-server/protocol"
	"github.com/billboardcp/billboard-server/store"
	"github.com/billboardcp/billboard-server/users"
)

// Dispatcher is one connection's request loop. It reads one request at a
// time, routes it by command, consults the policy, calls into persistence
// and writes exactly one response before reading the next request. A
// dispatcher is never shared between connections.
type Dispatcher struct {
	repo     store.Repository
	sessions *sessions.Store
	policy   *auth.Policy
	log      zerolog.Logger
}

// NewDispatcher wires a dispatcher for a single connection.
func NewDispatcher(repo store.Repository, sessionStore *sessions.Store, policy *auth.Policy, log zerolog.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("[NewDispatcher] store is required")
	}
	if sessionStore == nil {
		return nil, errors.New("[NewDispatcher] session store is required")
	}
	if policy == nil {
		return nil, errors.New("[NewDispatcher] policy is required")
	}
	return &Dispatcher{
		repo:     repo,
		sessions: sessionStore,
		policy:   policy,
		log:      log,
	}, nil
}

// Serve runs the read loop until the peer disconnects. A clean close by the
// peer is the normal termination condition, not an error. On any exit every
// pending session timer is cancelled so nothing outlives the connection.
func (d *Dispatcher) Serve(codec *protocol.Codec) error {
	defer d.teardown()

	for {
		req, err := codec.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Info().Msg("client disconnected")
				return nil
			}
			return errors.Wrap(err, "[Dispatcher.Serve] read")
		}

		if err := codec.WriteResponse(d.Handle(req)); err != nil {
			return errors.Wrap(err, "[Dispatcher.Serve] write")
		}
	}
}

// teardown closes the session store and adjusts the gauge by the count
// Close actually removed, so an expiry firing at the same moment is never
// decremented twice.
func (d *Dispatcher) teardown() {
	metrics.ActiveSessions.Sub(float64(d.sessions.Close()))
}

// Handle routes one request to its handler and always returns exactly one
// response.
func (d *Dispatcher) Handle(req *protocol.Request) *protocol.Response {
	d.log.Debug().Str("command", string(req.Command)).Msg("request")

	resp := d.dispatch(req)
	metrics.RequestsTotal.WithLabelValues(string(req.Command), string(resp.Status)).Inc()
	return resp
}

func (d *Dispatcher) dispatch(req *protocol.Request) *protocol.Response {
	if err := req.Validate(); err != nil {
		return &protocol.Response{Status: protocol.StatusBadRequest, Command: req.Command, Message: err.Error()}
	}

	switch req.Command {
	case protocol.CommandLogin:
		return d.login(req)
	case protocol.CommandLogout:
		return d.logout(req)
	case protocol.CommandUsers:
		return d.listUsers(req)
	case protocol.CommandAddUser:
		return d.addUser(req)
	case protocol.CommandUpdateUser:
		return d.updateUser(req)
	case protocol.CommandDeleteUser:
		return d.deleteUser(req)
	case protocol.CommandBillboards:
		return d.listBillboards(req)
	case protocol.CommandGetBillboard:
		return d.getBillboard(req)
	case protocol.CommandAddBillboard:
		return d.addBillboard(req)
	case protocol.CommandEditBillboard:
		return d.modifyBillboard(req, func() error { return d.repo.UpdateBillboard(*req.Billboard) })
	case protocol.CommandDeleteBillboard:
		return d.modifyBillboard(req, func() error { return d.repo.DeleteBillboard(req.Billboard.Name) })
	case protocol.CommandSchedules:
		return d.listSchedules(req)
	case protocol.CommandAddSchedule:
		return d.addSchedule(req)
	case protocol.CommandTest:
		return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Message: "Test success"}
	}

	// Validate rejects unknown commands; this is unreachable.
	return &protocol.Response{Status: protocol.StatusBadRequest, Command: req.Command}
}

// login derives the salted hash from the client-side password hash and the
// stored salt, compares it against the stored hash and issues a session on a
// match. Unknown usernames and wrong passwords answer identically.
func (d *Dispatcher) login(req *protocol.Request) *protocol.Response {
	salt, err := d.repo.GetSalt(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		return d.deny(req, auth.InvalidCredentialsErr)
	}
	if err != nil {
		return d.dataError(req, err)
	}

	stored, err := d.repo.GetPassword(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		return d.deny(req, auth.InvalidCredentialsErr)
	}
	if err != nil {
		return d.dataError(req, err)
	}

	if auth.DeriveStoredHash(req.Password, salt) != stored {
		return d.deny(req, auth.InvalidCredentialsErr)
	}

	permission, err := d.repo.GetPermission(req.Username)
	if err != nil {
		return d.dataError(req, err)
	}

	token := d.sessions.Issue(req.Username, permission)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.ActiveSessions.Inc()
	d.log.Info().Str("username", req.Username).Msg("login")

	return &protocol.Response{
		Status:     protocol.StatusOK,
		Command:    req.Command,
		Token:      token,
		Username:   req.Username,
		Permission: string(permission),
	}
}

func (d *Dispatcher) logout(req *protocol.Request) *protocol.Response {
	if !d.sessions.Revoke(req.Token) {
		return d.deny(req, auth.NoPermissionErr)
	}
	metrics.ActiveSessions.Dec()
	return d.ok(req)
}

func (d *Dispatcher) listUsers(req *protocol.Request) *protocol.Response {
	if _, err := d.policy.CanManageUsers(req.Token); err != nil {
		return d.deny(req, err)
	}
	list, err := d.repo.GetUsers()
	if err != nil {
		return d.dataError(req, err)
	}
	for i := range list {
		list[i] = list[i].Sanitized()
	}
	return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Users: list}
}

// addUser generates a fresh salt, applies the server-side hash round and
// persists the user before the salt, so a duplicate username leaves no
// orphaned salt row behind.
func (d *Dispatcher) addUser(req *protocol.Request) *protocol.Response {
	if _, err := d.policy.CanManageUsers(req.Token); err != nil {
		return d.deny(req, err)
	}

	u := *req.User
	if !u.Permission.Valid() {
		return &protocol.Response{Status: protocol.StatusBadRequest, Command: req.Command, Message: "unknown permission"}
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return d.dataError(req, err)
	}
	u.Password = auth.DeriveStoredHash(u.Password, salt)
	u.OldPassword = ""

	if err := d.repo.AddUser(u); errors.Is(err, store.ErrUsernameExists) {
		return d.deny(req, auth.UsernameExistsErr)
	} else if err != nil {
		return d.dataError(req, err)
	}
	if err := d.repo.AddSalt(u.Username, salt); err != nil {
		return d.dataError(req, err)
	}

	d.log.Info().Str("username", u.Username).Msg("user added")
	return d.ok(req)
}

// updateUser re-derives the stored hash only when the submitted password
// differs from the old one; a resubmitted unchanged password keeps the
// stored hash as is.
func (d *Dispatcher) updateUser(req *protocol.Request) *protocol.Response {
	if err := d.policy.CanUpdateUser(req.Token, *req.User); err != nil {
		return d.deny(req, err)
	}

	u := *req.User
	if !u.Permission.Valid() {
		return &protocol.Response{Status: protocol.StatusBadRequest, Command: req.Command, Message: "unknown permission"}
	}

	if u.Password != u.OldPassword {
		salt, err := d.repo.GetSalt(u.Username)
		if err != nil {
			return d.dataError(req, err)
		}
		u.Password = auth.DeriveStoredHash(u.Password, salt)
	}
	u.OldPassword = ""

	if err := d.repo.UpdateUser(u); errors.Is(err, store.ErrUsernameExists) {
		return d.deny(req, auth.UsernameExistsErr)
	} else if err != nil {
		return d.dataError(req, err)
	}
	return d.ok(req)
}

func (d *Dispatcher) deleteUser(req *protocol.Request) *protocol.Response {
	if err := d.policy.CanDeleteUser(req.Token, req.User.Username); err != nil {
		return d.deny(req, err)
	}
	if err := d.repo.DeleteUser(req.User.Username); err != nil {
		return d.dataError(req, err)
	}
	d.log.Info().Str("username", req.User.Username).Msg("user deleted")
	return d.ok(req)
}

// listBillboards needs no session; every client may browse billboards.
func (d *Dispatcher) listBillboards(req *protocol.Request) *protocol.Response {
	list, err := d.repo.GetBillboards()
	if err != nil {
		return d.dataError(req, err)
	}
	return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Billboards: list}
}

// getBillboard returns the rendered content verbatim; no authorization.
func (d *Dispatcher) getBillboard(req *protocol.Request) *protocol.Response {
	content, err := d.repo.GetRenderedContent(req.Billboard.Name)
	if err != nil {
		return d.dataError(req, err)
	}
	return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Content: content}
}

func (d *Dispatcher) addBillboard(req *protocol.Request) *protocol.Response {
	sess, err := d.policy.CanAddBillboard(req.Token)
	if err != nil {
		return d.deny(req, err)
	}

	b := *req.Billboard
	b.Username = sess.Username // owner is always the caller, never client-chosen
	if err := d.repo.AddBillboard(b); err != nil {
		return d.dataError(req, err)
	}
	return d.ok(req)
}

// modifyBillboard covers edit and delete, which share the ownership and
// scheduled-lock rules. The scheduled fact is only fetched for a Create
// Billboards holder touching their own billboard; Edit All Billboards
// callers bypass it and every other deny path happens with no persistence
// call at all.
func (d *Dispatcher) modifyBillboard(req *protocol.Request, apply func() error) *protocol.Response {
	facts := auth.BillboardFacts{Owner: req.Billboard.Username}
	if sess, ok := d.policy.Caller(req.Token); ok &&
		sess.Permission == users.PermissionCreateBillboards &&
		facts.Owner == sess.Username {
		scheduled, err := d.repo.IsScheduled(req.Billboard.Name)
		if err != nil {
			return d.dataError(req, err)
		}
		facts.Scheduled = scheduled
	}

	if err := d.policy.CanModifyBillboard(req.Token, facts); err != nil {
		return d.deny(req, err)
	}
	if err := apply(); err != nil {
		return d.dataError(req, err)
	}
	return d.ok(req)
}

func (d *Dispatcher) listSchedules(req *protocol.Request) *protocol.Response {
	if err := d.policy.CanListSchedules(req.Token); err != nil {
		return d.deny(req, err)
	}
	list, err := d.repo.GetSchedules()
	if err != nil {
		return d.dataError(req, err)
	}
	return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Schedules: list}
}

func (d *Dispatcher) addSchedule(req *protocol.Request) *protocol.Response {
	if err := d.policy.CanAddSchedule(req.Token); err != nil {
		return d.deny(req, err)
	}
	if err := d.repo.AddSchedule(*req.Schedule); err != nil {
		return d.dataError(req, err)
	}
	return d.ok(req)
}

func (d *Dispatcher) ok(req *protocol.Request) *protocol.Response {
	return &protocol.Response{Status: protocol.StatusOK, Command: req.Command, Token: req.Token}
}

// deny translates a refusal sentinel into the wire status it stands for.
// Anything unrecognized answers no-permission, the protocol's catch-all
// refusal.
func (d *Dispatcher) deny(req *protocol.Request, err error) *protocol.Response {
	switch {
	case errors.Is(err, auth.InvalidCredentialsErr):
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return &protocol.Response{Status: protocol.StatusInvalidCredentials, Command: req.Command}
	case errors.Is(err, auth.UsernameExistsErr):
		return &protocol.Response{Status: protocol.StatusUsernameExists, Command: req.Command, Token: req.Token}
	default:
		return &protocol.Response{Status: protocol.StatusNoPermission, Command: req.Command, Token: req.Token}
	}
}

// dataError logs the failure and fails only the current request; the
// connection survives to process the next one.
func (d *Dispatcher) dataError(req *protocol.Request, err error) *protocol.Response {
	d.log.Error().Err(err).Str("command", string(req.Command)).Msg("data layer failure")
	return &protocol.Response{Status: protocol.StatusError, Command: req.Command, Message: "internal error"}
}
