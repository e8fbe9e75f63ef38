package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/handler"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RESTServer struct {
	logger *zap.Logger

	authenticator        *auth.Authenticator
	registerHandler      *handler.RegisterHandler
	loginHandler         *handler.LoginHandler
	listMessagesHandler  *handler.ListMessagesHandler
	getMessageHandler    *handler.GetMessageHandler
	deleteMessageHandler *handler.DeleteMessageHandler
	presenceHandler      *handler.PresenceHandler
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	registerHandler *handler.RegisterHandler,
	loginHandler *handler.LoginHandler,
	listMessagesHandler *handler.ListMessagesHandler,
	getMessageHandler *handler.GetMessageHandler,
	deleteMessageHandler *handler.DeleteMessageHandler,
	presenceHandler *handler.PresenceHandler,
) *RESTServer {
	return &RESTServer{
		logger,
		authenticator,
		registerHandler,
		loginHandler,
		listMessagesHandler,
		getMessageHandler,
		deleteMessageHandler,
		presenceHandler,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.Use(cors)

	router.HandleFunc("/account/register", func(w http.ResponseWriter, r *http.Request) {
		var registerRequest handler.RegisterRequest
		if !s.decodeBody(w, r, &registerRequest) {
			return
		}

		registerResponse, err := s.registerHandler.Handle(r.Context(), registerRequest)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusCreated, registerResponse)
	}).Methods("POST", "OPTIONS")

	router.HandleFunc("/account/login", func(w http.ResponseWriter, r *http.Request) {
		var loginRequest handler.LoginRequest
		if !s.decodeBody(w, r, &loginRequest) {
			return
		}

		loginResponse, err := s.loginHandler.Handle(r.Context(), loginRequest)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, loginResponse)
	}).Methods("POST", "OPTIONS")

	authenticated := router.NewRoute().Subrouter()
	authenticated.Use(s.authenticate)

	authenticated.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		authentication, _ := auth.AuthenticationFromContext(r.Context())

		query := r.URL.Query()

		page, err := queryInt(query.Get("page"))
		if err != nil {
			s.writeError(w, err)
			return
		}

		pageSize, err := queryInt(query.Get("pageSize"))
		if err != nil {
			s.writeError(w, err)
			return
		}

		messages, err := s.listMessagesHandler.Handle(r.Context(), handler.ListMessagesRequest{
			Username:  authentication.Subject,
			Container: query.Get("container"),
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, messages)
	}).Methods("GET", "OPTIONS")

	authenticated.HandleFunc("/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		authentication, _ := auth.AuthenticationFromContext(r.Context())

		message, err := s.getMessageHandler.Handle(r.Context(), handler.MessageRequest{
			Username: authentication.Subject,
			Id:       mux.Vars(r)["id"],
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, message)
	}).Methods("GET", "OPTIONS")

	authenticated.HandleFunc("/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		authentication, _ := auth.AuthenticationFromContext(r.Context())

		err := s.deleteMessageHandler.Handle(r.Context(), handler.MessageRequest{
			Username: authentication.Subject,
			Id:       mux.Vars(r)["id"],
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}).Methods("DELETE")

	authenticated.HandleFunc("/presence", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.presenceHandler.Handle())
	}).Methods("GET", "OPTIONS")
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *RESTServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authentication, err := authenticateRequest(s.authenticator, r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAuthentication(r.Context(), authentication)))
	})
}

func (s *RESTServer) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))
		return false
	}

	return true
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error ierr.Error `json:"error"`
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("error in rest handler", zap.Error(err))

		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, handlerErr.Code.HTTPStatus(), errorResponse{Error: handlerErr})
}

func queryInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid integer: "+value))
	}

	return n, nil
}
