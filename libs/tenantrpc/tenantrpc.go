// Package tenantrpc is the TenantSettings gRPC contract. Messages are plain
// structs carried by the grpcx JSON codec.
package tenantrpc

import (
	"context"

	"github.com/salonbook/salonbook/libs/grpcx"
	"github.com/salonbook/salonbook/libs/hours"
	"google.golang.org/grpc"
)

const (
	ServiceName       = "salonbook.tenant.v1.TenantSettings"
	GetScheduleMethod = "/" + ServiceName + "/GetSchedule"
)

type GetScheduleRequest struct {
	TenantID string `json:"tenant_id"`
	StaffID  string `json:"staff_id"`
}

// Schedule is everything availability needs about a tenant and one staff member.
// StaffWeek is nil when the staff member follows the tenant week. A nil
// UTCOffsetMinutes means the tenant never set one.
type Schedule struct {
	TenantID         string     `json:"tenant_id"`
	BusinessName     string     `json:"business_name"`
	TenantWeek       hours.Week `json:"tenant_week"`
	IntervalMinutes  int        `json:"interval_minutes"`
	UTCOffsetMinutes *int       `json:"utc_offset_minutes,omitempty"`
	StaffID          string     `json:"staff_id"`
	StaffName        string     `json:"staff_name"`
	StaffActive      bool       `json:"staff_active"`
	StaffWeek        hours.Week `json:"staff_week,omitempty"`
}

type TenantSettingsServer interface {
	GetSchedule(ctx context.Context, req *GetScheduleRequest) (*Schedule, error)
}

func RegisterTenantSettingsServer(s grpc.ServiceRegistrar, srv TenantSettingsServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TenantSettingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSchedule", Handler: getScheduleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tenantrpc",
}

func getScheduleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetScheduleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenantSettingsServer).GetSchedule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetScheduleMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TenantSettingsServer).GetSchedule(ctx, req.(*GetScheduleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetSchedule(ctx context.Context, req *GetScheduleRequest, opts ...grpc.CallOption) (*Schedule, error) {
	out := new(Schedule)
	opts = append([]grpc.CallOption{grpcx.CallJSON()}, opts...)
	if err := c.cc.Invoke(ctx, GetScheduleMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
