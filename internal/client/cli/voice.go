package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/capture"
	"github.com/dmitrijs2005/sitekeeper/internal/client/services"
)

// Voice records a spoken inventory update and submits it.
//
// With --file the recording is read from an audio file instead of the
// recorder command and stops by itself at the end of the file. Otherwise
// recording runs until the user presses Enter. A failed upload can be
// retried with the same recording.
func (a *App) Voice(ctx context.Context, args []string) error {
	dev, err := a.voiceDevice(args)
	if err != nil {
		return err
	}

	v := services.NewVoice(a.api, a.session, a.inventory, dev, services.VoiceOptions{
		Constraints: capture.DefaultAudioConstraints,
		Filename:    a.config.AudioFilename,
		ContentType: a.config.AudioContentType,
		AutoClose:   a.config.VoiceAutoClose,
	}, a.log)
	defer v.Close()

	if err := v.Start(ctx); err != nil {
		return err
	}

	if _, ok := dev.(capture.FileDevice); ok {
		fmt.Fprintln(a.out, "Reading recording...")
		select {
		case <-v.Ended():
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		if _, err := getSimpleText(a.reader, "Recording... press Enter to stop", a.out); err != nil {
			return err
		}
	}

	// an empty recording surfaces as capture.ErrNoAudio, shown like any
	// other failure
	if err := v.Stop(); err != nil {
		return err
	}

	for {
		fmt.Fprintln(a.out, "Sending...")
		res, err := v.Submit(ctx)
		if err == nil {
			fmt.Fprintf(a.out, "Heard: %q\n", res.Transcript)
			fmt.Fprintf(a.out, "%s %d x %s\n", res.Action, res.Quantity, res.Item)
			break
		}

		printlnFn(banner(err))
		answer, rerr := getSimpleText(a.reader, "Retry? [y/N]", a.out)
		if rerr != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return nil
		}
	}

	select {
	case <-v.Done():
	case <-ctx.Done():
	}
	return nil
}

func (a *App) voiceDevice(args []string) (capture.Device, error) {
	const usage = "voice [--file path]"
	switch {
	case len(args) == 0:
		return a.device, nil
	case len(args) == 2 && (args[0] == "--file" || args[0] == "-f"):
		return capture.FileDevice{Path: args[1]}, nil
	default:
		return nil, errUsage(usage)
	}
}
