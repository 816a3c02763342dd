// Command bikeingest snapshots the Seoul public bike station list into an
// S3-compatible bronze bucket.
package main

func main() {
	Execute()
}
