package scheduling

import (
	"context"
	"time"

	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/grpcx"
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/libs/tenantrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Provider is the tenant and staff settings store availability reads from.
type Provider interface {
	GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error)
}

type grpcProvider struct {
	client *tenantrpc.Client
	conn   *grpc.ClientConn
}

// NewGRPCProvider asks tenant-service over gRPC.
func NewGRPCProvider(ctx context.Context, addr string) (Provider, func() error, error) {
	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, nil, err
	}
	return &grpcProvider{client: tenantrpc.NewClient(conn), conn: conn}, conn.Close, nil
}

func (p *grpcProvider) GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error) {
	sched, err := p.client.GetSchedule(grpcx.WithTenant(ctx, tenantID), &tenantrpc.GetScheduleRequest{TenantID: tenantID, StaffID: staffID})
	if err != nil {
		return nil, fromStatus(err)
	}
	return sched, nil
}

func fromStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return apperr.NotFound("staff")
	case codes.InvalidArgument:
		return apperr.Validation(status.Convert(err).Message())
	default:
		return apperr.Unexpected(err)
	}
}

type pgProvider struct {
	q           db.Querier
	defaultWeek hours.Week
}

// NewPGProvider reads the tenant tables directly from the shared database.
func NewPGProvider(q db.Querier, defaultWeek hours.Week) Provider {
	return &pgProvider{q: q, defaultWeek: defaultWeek}
}

func (p *pgProvider) GetSchedule(ctx context.Context, tenantID, staffID string) (*tenantrpc.Schedule, error) {
	return tenantrpc.LoadSchedule(ctx, p.q, tenantID, staffID, p.defaultWeek)
}
