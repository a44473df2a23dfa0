package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"presence/internal/apiclient"
	"presence/internal/fingerprint"
	"presence/internal/token"
)

// Student-side submission tool: takes a scanned transport string, attaches
// the device fingerprint and acquired coordinates, and submits once. The
// backend runs the geofence and freshness checks; this tool pre-checks
// freshness so an obviously stale scan fails before the network hop.
func main() {
	var (
		server    = flag.String("server", "http://localhost:8081", "attendance backend base URL")
		authToken = flag.String("auth", "", "bearer token for the backend")
		transport = flag.String("scan", "", "scanned transport string")
		name      = flag.String("name", "", "student name")
		roll      = flag.String("roll", "", "roll number (e.g. CS-014)")
		lat       = flag.Float64("lat", 0, "acquired latitude")
		lng       = flag.Float64("lng", 0, "acquired longitude")
		accuracy  = flag.Float64("accuracy", 0, "coordinate accuracy in meters")
		noLoc     = flag.Bool("no-location", false, "submit without coordinates (location acquisition failed)")
	)
	flag.Parse()

	if *transport == "" || *name == "" || *roll == "" {
		flag.Usage()
		os.Exit(2)
	}

	decoded := token.DecodeAny(*transport)
	if decoded.Kind != token.Attendance {
		log.Fatal("that scan is not an attendance code; rescan and try again")
	}
	if !decoded.Token.Valid(time.Now()) {
		log.Fatal("that code has expired; the teacher's code rotates, rescan the current one")
	}

	fp := fingerprint.NewProvider(fingerprint.NewFileStore(""))

	req := apiclient.SubmitRequest{
		Transport:         *transport,
		StudentName:       *name,
		RollNo:            *roll,
		DeviceFingerprint: fp.GetOrCreate(),
	}
	if !*noLoc {
		req.Lat, req.Lng = lat, lng
		req.AccuracyM = *accuracy
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := apiclient.New(*server, *authToken)
	res, err := client.Submit(ctx, req)
	if err != nil {
		log.Fatalf("submission failed: %v", err)
	}

	fmt.Printf("attendance recorded for %s (%s) in %s on %s at %s\n",
		res.Event.StudentName, res.Event.RollNo, decoded.Token.SubjectName, res.Event.Date, res.Event.Time)
	if res.LocationChecked {
		fmt.Printf("verified %.0fm from the teacher (limit %.0fm)\n",
			res.DistanceMeters, res.Event.RequiredRadiusM)
	} else if res.Notice != "" {
		fmt.Println(res.Notice)
	}
}
