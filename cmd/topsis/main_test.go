package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/modelrank/internal/domain/types"
)

const matrixCSV = `Model,Accuracy,Latency,Size,Languages
fast,0.80,20,100,2
big,0.95,200,1300,10
tiny,0.70,10,50,1
`

func execute(args []string, stdin string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRankCommand(t *testing.T) {
	Convey("Given a decision matrix on stdin", t, func() {
		Convey("When ranked with matching weights and impacts", func() {
			out, err := execute([]string{"rank", "--weights", "1,1,1,1", "--impacts", "+,-,-,+"}, matrixCSV)

			Convey("Then every row should gain a score and rank", func() {
				So(err, ShouldBeNil)
				recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 4)
				So(recs[0][5], ShouldEqual, "Topsis Score")
				So(recs[0][6], ShouldEqual, "Rank")
				So(recs[1][0], ShouldEqual, "fast")
				ranks := []string{recs[1][6], recs[2][6], recs[3][6]}
				So(ranks, ShouldContain, "1")
				So(ranks, ShouldContain, "2")
				So(ranks, ShouldContain, "3")
			})
		})

		Convey("When sorted output is requested", func() {
			out, err := execute([]string{"rank", "-w", "1,1,1,1", "--impacts", "+,-,-,+", "--sorted"}, matrixCSV)

			Convey("Then rank 1 should come first", func() {
				So(err, ShouldBeNil)
				recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
				So(err, ShouldBeNil)
				So(recs[1][6], ShouldEqual, "1")
				So(recs[3][6], ShouldEqual, "3")
			})
		})

		Convey("When the weight count does not match", func() {
			_, err := execute([]string{"rank", "--weights", "1,1", "--impacts", "+,-,-,+"}, matrixCSV)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "need 4 weights")
		})

		Convey("When an impact is invalid", func() {
			_, err := execute([]string{"rank", "--weights", "1,1,1,1", "--impacts", "+,-,-,x"}, matrixCSV)
			So(err, ShouldNotBeNil)
		})

		Convey("When required flags are missing", func() {
			_, err := execute([]string{"rank"}, matrixCSV)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given input and output files", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "data.csv")
		outPath := filepath.Join(dir, "result.csv")
		So(os.WriteFile(in, []byte(matrixCSV), 0o600), ShouldBeNil)

		Convey("When ranked to a file", func() {
			_, err := execute([]string{"rank", "-i", in, "-o", outPath, "-w", "1,1,1,1", "--impacts", "+,-,-,+"}, "")

			Convey("Then the file should hold the ranked table", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(outPath)
				So(err, ShouldBeNil)
				So(string(data), ShouldStartWith, "Model,Accuracy,Latency,Size,Languages,Topsis Score,Rank")
			})
		})

		Convey("When the input file is missing", func() {
			_, err := execute([]string{"rank", "-i", filepath.Join(dir, "nope.csv"), "-w", "1", "--impacts", "+"}, "")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBenchCommand(t *testing.T) {
	Convey("Given a running ranking server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rank-models" {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode([]types.RankedModel{
				{Model: "a", Score: 0.7, Rank: 1},
				{Model: "b", Score: 0.3, Rank: 2},
			})
		}))
		defer srv.Close()

		Convey("When bench runs against it", func() {
			out, err := execute([]string{"bench", "--url", srv.URL, "-n", "12", "-c", "3",
				"--models", "a,b,c,d"}, "")

			Convey("Then a clean summary should be printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "requests=12 ok=12")
				So(out, ShouldContainSubstring, "winner a x12")
			})
		})

		Convey("When the server cannot provide a catalog", func() {
			_, err := execute([]string{"bench", "--url", srv.URL, "-n", "2"}, "")
			So(err, ShouldNotBeNil)
		})
	})
}
