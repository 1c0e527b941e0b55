package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"storefront/handlers"
	"storefront/internal/consul"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Query a running storefront over gRPC",
	}
	var addr string
	show := &cobra.Command{
		Use:   "show USER_ID",
		Short: "Print a user's active cart",
		Long: `Prints the active cart of USER_ID as JSON. Without --addr the gRPC endpoint
is discovered through consul.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := addr
			if target == "" {
				if a.cfg.ConsulAddr == "" {
					return fmt.Errorf("either --addr or CONSUL_HTTP_ADDR is required")
				}
				client, err := consul.NewClient(a.cfg.ConsulAddr)
				if err != nil {
					return err
				}
				host, port, err := consul.GetServiceAddress(client, grpcServiceName(a.cfg.ServiceName))
				if err != nil {
					return err
				}
				target = net.JoinHostPort(host, strconv.Itoa(port))
			}

			conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := handlers.NewCartItemServiceClient(conn).GetCartDetails(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	show.Flags().StringVar(&addr, "addr", "", "gRPC address of the storefront (host:port)")
	cmd.AddCommand(show)
	return cmd
}

func grpcServiceName(name string) string {
	return name + "-grpc"
}
