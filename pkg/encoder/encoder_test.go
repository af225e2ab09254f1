package encoder

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
)

func testConf() config.Config {
	return config.Config{
		Stream: config.Stream{
			Width: 640, Height: 360, Fps: 15, Bitrate: "2500k", Key: "abcd-1234",
			PrimaryURL: "rtmp://a.rtmp.youtube.com/live2",
			BackupURL:  "rtmp://b.rtmp.youtube.com/live2?backup=1",
		},
		Encoder: config.Encoder{
			Binary: "ffmpeg", VideoCodec: "libx264", Preset: "veryfast",
			AudioCodec: "aac", AudioBitrate: "128k", AudioRate: 44100, LogLevel: "warning",
		},
	}
}

func TestArgs(t *testing.T) {
	want := "-hide_banner -loglevel warning -f rawvideo -pix_fmt rgb24 -s 640x360 -r 15 -i pipe:0 " +
		"-f lavfi -i anullsrc=channel_layout=stereo:sample_rate=44100 -map 0:v -map 1:a " +
		"-c:v libx264 -preset veryfast -tune zerolatency -pix_fmt yuv420p -g 30 " +
		"-b:v 2500k -maxrate 2500k -bufsize 5000k -c:a aac -b:a 128k -ar 44100 -f tee " +
		"[f=flv:onfail=ignore]rtmp://a.rtmp.youtube.com/live2/abcd-1234|" +
		"[f=flv:onfail=ignore]rtmp://b.rtmp.youtube.com/live2/abcd-1234?backup=1"

	if got := strings.Join(Args(testConf()), " "); got != want {
		t.Errorf("wrong args\n got: %v\nwant: %v", got, want)
	}
}

func TestArgsNoBackup(t *testing.T) {
	conf := testConf()
	conf.Stream.BackupURL = ""
	args := Args(conf)
	tail := strings.Join(args[len(args)-3:], " ")
	if tail != "-f flv rtmp://a.rtmp.youtube.com/live2/abcd-1234" {
		t.Errorf("wrong output %v", tail)
	}
}

func TestDestination(t *testing.T) {
	tests := []struct{ base, key, want string }{
		{"rtmp://a/live2", "k", "rtmp://a/live2/k"},
		{"rtmp://a/live2/", "k", "rtmp://a/live2/k"},
		{"rtmp://b/live2?backup=1", "k", "rtmp://b/live2/k?backup=1"},
	}
	for _, test := range tests {
		if got := Destination(test.base, test.key); got != test.want {
			t.Errorf("%v: got %v, want %v", test.base, got, test.want)
		}
	}
}

func TestRedact(t *testing.T) {
	conf := testConf()
	for _, a := range Redact(Args(conf), conf.Stream.Key) {
		if strings.Contains(a, conf.Stream.Key) {
			t.Errorf("the key is visible in %v", a)
		}
	}
}

func TestDouble(t *testing.T) {
	for in, want := range map[string]string{"2500k": "5000k", "3M": "6M", "1.5m": "3m", "800000": "1600000", "fast": "fast", "": ""} {
		if got := double(in); got != want {
			t.Errorf("double(%q) = %q, want %q", in, got, want)
		}
	}
}

func shell(t *testing.T) string {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh")
	}
	return sh
}

func TestProcessClean(t *testing.T) {
	var out bytes.Buffer
	p, err := Spawn(shell(t), []string{"-c", "cat >/dev/null; echo bye >&2"}, logger.NewWriter(&out))
	if err != nil {
		t.Fatal(err)
	}
	if p.Pid() == 0 {
		t.Errorf("no pid")
	}
	if _, err := p.Write(make([]byte, 1024)); err != nil {
		t.Fatal(err)
	}
	code, err := p.Stop(5 * time.Second)
	if code != 0 || err != nil {
		t.Errorf("got %v %v, want clean exit", code, err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if !strings.Contains(out.String(), "bye") {
		t.Errorf("stderr is not logged: %v", out.String())
	}
}

func TestProcessExitedEarly(t *testing.T) {
	p, err := Spawn(shell(t), []string{"-c", "head -c 10 >/dev/null; exit 3"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64*1024)
	var werr error
	for i := 0; i < 1000 && werr == nil; i++ {
		_, werr = p.Write(buf)
	}
	if werr == nil {
		t.Fatalf("write into the exited process should fail")
	}
	<-p.Done()
	if code, _ := p.Wait(); code != 3 {
		t.Errorf("got exit code %v, want 3", code)
	}
}

func TestProcessStopKills(t *testing.T) {
	p, err := Spawn(shell(t), []string{"-c", "trap '' TERM; while true; do sleep 1; done"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	code, _ := p.Stop(100 * time.Millisecond)
	if code == 0 {
		t.Errorf("killed process should have a non-zero code")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("stop took too long")
	}
}

func TestSpawnMissing(t *testing.T) {
	if _, err := Spawn("/nonexistent/ffmpeg", nil, nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("got %v, want ErrNotStarted", err)
	}
	var p *Process
	if _, err := p.Write(nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("got %v, want ErrNotStarted", err)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 || ExitCode(errors.New("x")) != 1 {
		t.Errorf("wrong exit codes")
	}
}
