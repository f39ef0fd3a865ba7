package service

import (
	"context"
	"errors"
	"strings"

	"logospos/internal/dto"
	"logospos/internal/model"
	"logospos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, busqueda string) []dto.ClienteResponse
}

type clienteService struct{ repo repository.ClienteRepository }

func NewClienteService(repo repository.ClienteRepository) ClienteService {
	return &clienteService{repo: repo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{
		Nombre:    strings.TrimSpace(req.Nombre),
		Documento: req.Documento,
		Telefono:  req.Telefono,
		Email:     req.Email,
		Activo:    true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *clienteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoEncontrado) {
			return nil, ErrClienteNoEncontrado
		}
		return nil, err
	}
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *clienteService) Listar(ctx context.Context, busqueda string) []dto.ClienteResponse {
	rows, err := s.repo.List(ctx, busqueda)
	if err != nil {
		log.Error().Err(err).Msg("listar clientes")
		return []dto.ClienteResponse{}
	}
	out := make([]dto.ClienteResponse, 0, len(rows))
	for i := range rows {
		out = append(out, clienteToResponse(&rows[i]))
	}
	return out
}
