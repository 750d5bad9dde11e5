package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/admin"
	"github.com/AbrahamRP97/neighnet-go/internal/auth"
	"github.com/AbrahamRP97/neighnet-go/internal/config"
	"github.com/AbrahamRP97/neighnet-go/internal/feed"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
	"github.com/AbrahamRP97/neighnet-go/internal/passes"
	"github.com/AbrahamRP97/neighnet-go/internal/profile"
)

func cmdLogin(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "login")
	result, err := deps.Auth.Login(ctx, *email, *password)
	op.End(err)
	if err != nil {
		return err
	}

	if result.NeedPhoneVerify {
		fmt.Printf("phone verification required for %s (user %s)\n", result.Telefono, result.UserID)
		fmt.Println("run: neighnet verify-phone --user", result.UserID, "--code <sms-code>")
		return nil
	}

	fmt.Printf("logged in as %s (%s)\n", result.Session.UserName, result.Session.UserRole)
	return nil
}

func cmdRegister(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	nombre := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	telefono := fs.String("phone", "", "phone number")
	casa := fs.String("house", "", "house number")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "register")
	err := deps.Auth.Register(ctx, auth.RegisterInput{
		Nombre:     *nombre,
		Correo:     *email,
		Telefono:   *telefono,
		NumeroCasa: *casa,
		Contrasena: *password,
	})
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Println("account created; verify your phone to finish")
	return nil
}

func cmdVerifyPhone(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("verify-phone", flag.ContinueOnError)
	userID := fs.String("user", "", "user id from login/register")
	code := fs.String("code", "", "SMS verification code")
	resend := fs.Bool("resend", false, "request a fresh code instead of verifying")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *resend {
		if err := deps.Auth.SendPhoneCode(ctx, *userID); err != nil {
			return err
		}
		fmt.Println("verification code sent")
		return nil
	}

	ctx, op := logging.StartOp(ctx, "verify-phone")
	sess, err := deps.Auth.VerifyPhone(ctx, *userID, *code)
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Printf("phone verified; logged in as %s (%s)\n", sess.UserName, sess.UserRole)
	return nil
}

func cmdMe(ctx context.Context, deps Deps) error {
	ctx, op := logging.StartOp(ctx, "me")
	err := deps.Profile.Init(ctx)
	op.End(err)
	if err != nil {
		return err
	}

	p := deps.Profile.Current()
	if p == nil {
		fmt.Println("no session; run: neighnet login")
		return nil
	}

	fmt.Printf("%s <%s>\n", p.Nombre, p.Correo)
	fmt.Printf("casa %s, tel %s\n", p.NumeroCasa, p.Telefono)
	if avatar := deps.Profile.AvatarURL(); avatar != "" {
		fmt.Println("avatar:", avatar)
	}
	return nil
}

func cmdProfile(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	userID := fs.String("user", "", "user id to look up")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("missing --user")
	}

	ctx, op := logging.StartOp(ctx, "profile")
	p, err := deps.Profiles.FetchPublic(ctx, *userID)
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Println(p.Nombre)
	if avatar := profile.WithVersion(p.FotoURL, p.AvatarVersion); avatar != "" {
		fmt.Println("avatar:", avatar)
	}
	return nil
}

func cmdTheme(deps Deps, args []string) error {
	if len(args) == 0 {
		fmt.Println(deps.Profile.Theme())
		return nil
	}
	if err := deps.Profile.SetTheme(args[0]); err != nil {
		return err
	}
	fmt.Println("theme set to", args[0])
	return nil
}

func cmdFeed(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	pages := fs.Int("pages", 1, "number of pages to fetch")
	asJSON := fs.Bool("json", false, "emit raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "feed")
	posts, err := deps.Feed.LoadFirstPage(ctx)
	if err != nil {
		op.End(err)
		return err
	}
	for i := 1; i < *pages && !deps.Feed.ReachedEnd(); i++ {
		more, err := deps.Feed.LoadMore(ctx)
		if err != nil {
			op.End(err)
			return err
		}
		posts = append(posts, more...)
	}
	op.End(nil)

	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(posts)
	}

	for _, p := range posts {
		display, truncated := feed.Truncate(p.Mensaje)
		if truncated {
			display += "…"
		}
		fmt.Printf("[%s] %s: %s\n", p.ID, p.Usuario.Nombre, display)
		for _, img := range p.ImagenesURL {
			fmt.Println("   ", img)
		}
	}
	if deps.Feed.ReachedEnd() {
		fmt.Println("-- end of feed --")
	}
	return nil
}

func cmdPublish(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	message := fs.String("message", "", "post message")
	images := fs.String("images", "", "comma-separated image paths")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "publish")
	err := deps.Feed.Publish(ctx, *message, splitList(*images))
	op.End(err)
	if err != nil {
		var modErr *feed.ModerationError
		if errors.As(err, &modErr) {
			return fmt.Errorf("message rejected, banned words: %s", strings.Join(modErr.Words, ", "))
		}
		return err
	}

	fmt.Println("post published")
	return nil
}

func cmdEdit(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	postID := fs.String("post", "", "post id")
	message := fs.String("message", "", "new message")
	images := fs.String("images", "", "comma-separated image URLs and local paths")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "edit")
	err := deps.Feed.Edit(ctx, *postID, *message, splitList(*images))
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Println("post updated")
	return nil
}

func cmdDeletePost(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("delete-post", flag.ContinueOnError)
	postID := fs.String("post", "", "post id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "delete-post")
	err := deps.Feed.Delete(ctx, *postID)
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Println("post deleted")
	return nil
}

func cmdVisitors(ctx context.Context, deps Deps, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		items, err := deps.Visitors.List(ctx)
		if err != nil {
			return err
		}
		for _, v := range items {
			fmt.Printf("[%s] %s (%s) %s %s %s\n", v.ID, v.Nombre, v.Identidad, v.Placa, v.MarcaVehiculo, v.ColorVehiculo)
		}
		return nil
	case "add", "update":
		fs := flag.NewFlagSet("visitors "+args[0], flag.ContinueOnError)
		id := fs.String("id", "", "visitor id (update only)")
		nombre := fs.String("name", "", "visitor name")
		identidad := fs.String("identity", "", "identity document")
		placa := fs.String("plate", "", "vehicle plate")
		marca := fs.String("brand", "", "vehicle brand")
		modelo := fs.String("model", "", "vehicle model")
		color := fs.String("color", "", "vehicle color")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		v := models.Visitante{
			ID:             *id,
			Nombre:         *nombre,
			Identidad:      *identidad,
			Placa:          *placa,
			MarcaVehiculo:  *marca,
			ModeloVehiculo: *modelo,
			ColorVehiculo:  *color,
		}
		if args[0] == "add" {
			created, err := deps.Visitors.Create(ctx, v)
			if err != nil {
				return err
			}
			fmt.Println("visitor registered:", created.ID)
			return nil
		}
		if err := deps.Visitors.Update(ctx, v); err != nil {
			return err
		}
		fmt.Println("visitor updated")
		return nil
	case "rm":
		fs := flag.NewFlagSet("visitors rm", flag.ContinueOnError)
		id := fs.String("id", "", "visitor id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := deps.Visitors.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Println("visitor removed")
		return nil
	default:
		return fmt.Errorf("unknown visitors subcommand %q", args[0])
	}
}

func cmdPass(ctx context.Context, deps Deps, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("pass", flag.ContinueOnError)
	visitorID := fs.String("visitor", "", "visitor id")
	outDir := fs.String("out", cfg.BadgeDir, "badge output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "pass")

	if err := deps.Profile.Init(ctx); err != nil {
		op.End(err)
		return err
	}
	prof := deps.Profile.Current()
	if prof == nil {
		op.End(passes.ErrIncompleteProfile)
		return passes.ErrIncompleteProfile
	}

	visitors, err := deps.Visitors.List(ctx)
	if err != nil {
		op.End(err)
		return err
	}
	var selected models.Visitante
	for _, v := range visitors {
		if v.ID == *visitorID {
			selected = v
			break
		}
	}

	pass, err := deps.Issuer.Issue(ctx, selected, *prof)
	if err != nil {
		op.End(err)
		return err
	}

	badge, err := passes.WriteBadge(pass, *prof, selected, *outDir)
	op.End(err)
	if err != nil {
		return err
	}

	trust := "unsigned"
	if pass.Signed() {
		trust = "signed"
	}
	fmt.Printf("%s pass for %s\n", trust, selected.Nombre)
	fmt.Println("qr:", badge.QRPath)
	fmt.Println("card:", badge.CardPath)
	return nil
}

func cmdScan(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	raw := fs.String("payload", "", "raw scanned QR string")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "scan")
	result, err := deps.Scanner.HandleScan(ctx, *raw)
	op.End(err)
	if err != nil {
		return err
	}

	if result.Tipo != "" {
		fmt.Printf("%s: %s\n", result.Tipo, result.Message)
	} else {
		fmt.Println(result.Message)
	}
	return nil
}

func cmdEvidence(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("evidence", flag.ContinueOnError)
	visitID := fs.String("visit", "", "visit id")
	cedula := fs.String("cedula", "", "path to the cedula photo")
	placa := fs.String("placa", "", "path to the plate photo")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, op := logging.StartOp(ctx, "evidence")
	err := deps.Admin.AttachEvidence(ctx, *visitID, *cedula, *placa)
	op.End(err)
	if err != nil {
		return err
	}

	fmt.Println("evidence attached")
	return nil
}

func cmdVisits(ctx context.Context, deps Deps, args []string) error {
	fs := flag.NewFlagSet("visits", flag.ContinueOnError)
	from := fs.String("from", "", "RFC3339 lower bound")
	to := fs.String("to", "", "RFC3339 upper bound")
	estado := fs.String("estado", "", "evidence status filter")
	limit := fs.Int("limit", 50, "max records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := admin.VisitFilter{Estado: *estado, Limit: *limit}
	if *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
		filter.From = t
	}
	if *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return fmt.Errorf("parse --to: %w", err)
		}
		filter.To = t
	}

	ctx, op := logging.StartOp(ctx, "visits")
	visits, err := deps.Admin.ListVisits(ctx, filter)
	op.End(err)
	if err != nil {
		return err
	}

	for _, v := range visits {
		fmt.Printf("[%s] %s %s visita=%s evidencia=%s\n",
			v.FechaHora.Format(time.RFC3339), v.Tipo, v.IDQR, v.VisitanteID, v.EvidenceStatus)
	}
	return nil
}

func splitList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
