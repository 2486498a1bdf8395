package grpcserver

import (
	"context"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ScheduleSource is satisfied by *storage.Repository.
type ScheduleSource interface {
	GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error)
}

type server struct {
	source ScheduleSource
}

func Register(grpcServer grpc.ServiceRegistrar, source ScheduleSource) {
	tenantrpc.RegisterTenantSettingsServer(grpcServer, &server{source: source})
}

func (s *server) GetSchedule(ctx context.Context, req *tenantrpc.GetScheduleRequest) (*tenantrpc.Schedule, error) {
	if strings.TrimSpace(req.TenantID) == "" || strings.TrimSpace(req.StaffID) == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id and staff_id are required")
	}
	sched, err := s.source.GetSchedule(ctx, req.TenantID, req.StaffID)
	if err != nil {
		return nil, toStatus(err)
	}
	return sched, nil
}

func toStatus(err error) error {
	e := apperr.As(err)
	switch e.Kind {
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, e.Message)
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, e.Message)
	default:
		return status.Error(codes.Internal, "schedule lookup failed")
	}
}
