package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/godbus/dbus/v5"

	"github.com/GriffinCanCode/stratisd/internal/client"
	"github.com/GriffinCanCode/stratisd/internal/shared/types"
)

var errUsage = errors.New("usage")

type busAPI interface {
	ListPools(ctx context.Context) ([]string, error)
	CreatePool(ctx context.Context, name string, devices []string, raid uint16) (dbus.ObjectPath, error)
	DestroyPool(ctx context.Context, name string) (dbus.ObjectPath, error)
	ListVolumes(ctx context.Context, pool string) ([]string, error)
	CreateVolumes(ctx context.Context, pool string, vols []client.VolumeArg) ([]client.ItemResult, error)
	DestroyVolumes(ctx context.Context, pool string, names []string) ([]client.ItemResult, error)
	Close() error
}

type statusAPI interface {
	Health(ctx context.Context) (types.Health, error)
	Pools(ctx context.Context) (types.PoolList, error)
}

type app struct {
	out     io.Writer
	dialBus func() (busAPI, error)
	status  func() statusAPI
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "status":
		return a.showStatus(ctx)
	case "pool", "volume":
		if len(args) < 2 {
			return errUsage
		}
		b, err := a.dialBus()
		if err != nil {
			return err
		}
		defer b.Close()
		if args[0] == "pool" {
			return a.pool(ctx, b, args[1], args[2:])
		}
		return a.volume(ctx, b, args[1], args[2:])
	}
	return errUsage
}

func (a *app) pool(ctx context.Context, b busAPI, cmd string, args []string) error {
	switch cmd {
	case "list":
		names, err := b.ListPools(ctx)
		if err != nil {
			return err
		}
		a.lines(names)
		return nil

	case "create":
		fs := flag.NewFlagSet("pool create", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		raid := fs.Uint("raid", 0, "raid level")
		if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
			return errUsage
		}
		path, err := b.CreatePool(ctx, fs.Arg(0), fs.Args()[1:], uint16(*raid))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, path)
		return nil

	case "destroy":
		if len(args) != 1 {
			return errUsage
		}
		path, err := b.DestroyPool(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, path)
		return nil
	}
	return errUsage
}

func (a *app) volume(ctx context.Context, b busAPI, cmd string, args []string) error {
	switch cmd {
	case "list":
		if len(args) != 1 {
			return errUsage
		}
		names, err := b.ListVolumes(ctx, args[0])
		if err != nil {
			return err
		}
		a.lines(names)
		return nil

	case "create":
		fs := flag.NewFlagSet("volume create", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		mount := fs.String("mount", "", "mount point (required)")
		quota := fs.String("quota", "", "quota (required)")
		if err := fs.Parse(args); err != nil || fs.NArg() < 2 {
			return errUsage
		}
		if *mount == "" || *quota == "" {
			return errUsage
		}
		vols := make([]client.VolumeArg, 0, fs.NArg()-1)
		for _, name := range fs.Args()[1:] {
			vols = append(vols, client.VolumeArg{Name: name, MountPoint: *mount, Quota: *quota})
		}
		results, err := b.CreateVolumes(ctx, fs.Arg(0), vols)
		a.results(results)
		return err

	case "destroy":
		if len(args) < 2 {
			return errUsage
		}
		results, err := b.DestroyVolumes(ctx, args[0], args[1:])
		a.results(results)
		return err
	}
	return errUsage
}

func (a *app) showStatus(ctx context.Context) error {
	st := a.status()
	health, err := st.Health(ctx)
	if err != nil {
		return err
	}
	list, err := st.Pools(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s, bus %s, up %ds, %d objects\n\n",
		health.Status, health.Bus, int64(health.Uptime), health.Exposed)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRAID\tSIZE\tVOLUMES\tDEVICES\tCACHE\tPATH")
	for _, p := range list.Pools {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			p.Name, p.Raid, strconv.FormatUint(p.Size, 10), p.Volumes, p.Devices, p.CacheDevices, p.Path)
	}
	return tw.Flush()
}

func (a *app) lines(names []string) {
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
}

func (a *app) results(results []client.ItemResult) {
	for _, r := range results {
		if err := r.Err(); err != nil {
			fmt.Fprintf(a.out, "%s\t%v\n", r.Path, err)
			continue
		}
		fmt.Fprintln(a.out, r.Path)
	}
}
