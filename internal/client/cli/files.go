package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func (a *App) List(ctx context.Context, args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	files, err := a.api.List(ctx, prefix)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tPUBLIC")
	for _, f := range files {
		size := fmt.Sprint(f.Size)
		if f.IsFolder {
			size = "-"
		}
		public := ""
		if f.IsPublic {
			public = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, size, f.LastModified.Format("2006-01-02 15:04"), public)
	}
	return tw.Flush()
}

func (a *App) Put(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("put <local> [key]")
	}
	local := args[0]
	key := filepath.Base(local)
	if len(args) == 2 {
		key = args[1]
	}

	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", local)
	}

	contentType := mime.TypeByExtension(filepath.Ext(local))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := a.uploader.Upload(ctx, f, st.Size(), key, contentType)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Uploaded %s (%d bytes)\n", res.Key, st.Size())
	return nil
}

func (a *App) Get(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("get <key> <local>")
	}
	key, local := a.qualify(args[0]), args[1]

	f, err := os.Create(local)
	if err != nil {
		return err
	}

	n, err := a.api.Download(ctx, key, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(local)
		return err
	}

	fmt.Fprintf(a.out, "Downloaded %s to %s (%d bytes)\n", key, local, n)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <key>")
	}
	key := a.qualify(args[0])
	if err := a.api.Delete(ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", key)
	return nil
}

func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("share <key>")
	}
	key := a.qualify(args[0])
	if err := a.api.SetPublic(ctx, key, true); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Public URL:", a.api.PublicURL(key))
	return nil
}

func (a *App) Unshare(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("unshare <key>")
	}
	key := a.qualify(args[0])
	if err := a.api.SetPublic(ctx, key, false); err != nil {
		return err
	}
	fmt.Fprintln(a.out, key, "is now private")
	return nil
}
